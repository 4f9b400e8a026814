package wavelamp

// This module wires the renderer, the frame outputs and the signal ingestor
// together.  The renderer is started immediately while the ingestor waits
// for the connect button on the web surface

import (
	"fmt"
	"os"
	"time"

	"github.com/karlmutch/errors"

	"github.com/mgutz/logxi"

	"github.com/TeamNorCal/wavelamp/model"
)

// GatewayConfig holds the settings of every component, zero values disable
// the optional outputs
type GatewayConfig struct {
	Width   int
	Height  int
	Refresh time.Duration

	Device string
	Listen string

	OPCServer  string
	OPCRefresh time.Duration

	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
}

type Gateway struct {
	Params   *model.SpeedParameters
	Canvas   *Canvas
	Renderer *Renderer
	Ingestor *Ingestor
	Surface  *WebSurface

	logger logxi.Logger
}

func reportError(err errors.Error, errorC chan<- errors.Error) {
	if errorC == nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	select {
	case errorC <- err:
	case <-time.After(100 * time.Millisecond):
		fmt.Fprintln(os.Stderr, err.Error())
	}
}

// Start creates and runs every component.  It returns the channel to which
// subscribers for rendered frames can be added
func (gw *Gateway) Start(cfg *GatewayConfig, errorC chan<- errors.Error, quitC <-chan struct{}) (subscribeC chan chan *model.Frame, err errors.Error) {

	gw.logger = logxi.New("gateway")

	device, err := NewDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	if gw.Canvas, err = NewCanvas(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	gw.Params = model.NewSpeedParameters()
	gw.Renderer = NewRenderer(gw.Canvas, gw.Params)
	gw.Ingestor = NewIngestor(device, gw.Params)

	if len(cfg.MQTTBroker) != 0 {
		tel, err := NewTelemetry(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			// Telemetry is optional, the display carries on without it
			reportError(err, errorC)
		} else {
			gw.Ingestor.AddObserver(tel)
			go func() {
				<-quitC
				tel.Close()
			}()
		}
	}

	frameC, subscribeC := startFanOut(quitC)

	refresh := cfg.Refresh
	if refresh <= 0 {
		refresh = time.Second / 60
	}
	go gw.Renderer.Run(refresh, frameC, quitC)

	if len(cfg.OPCServer) != 0 {
		opcRefresh := cfg.OPCRefresh
		if opcRefresh <= 0 {
			opcRefresh = refresh
		}
		StartFadeCandy(cfg.OPCServer, opcRefresh, subscribeC, errorC, quitC)
	}

	gw.Surface = NewWebSurface(gw.Canvas, gw.Ingestor, errorC, quitC)
	gw.Surface.Broadcast(subscribeC)

	go func() {
		if err := gw.Surface.Serve(cfg.Listen); err != nil {
			reportError(err, errorC)
		}
	}()

	gw.logger.Info("started", "width", cfg.Width, "height", cfg.Height, "refresh", refresh.String(), "device", device.String())

	return subscribeC, nil
}
