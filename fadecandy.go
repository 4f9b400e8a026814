package wavelamp

// This file contains a function that when started will subscribe to rendered
// frames and will update a data structure that another function checks on a
// regular basis and uses to update a strip of LEDs attached to a fadecandy
// device, one LED per waveform bar

import (
	"bytes"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	"github.com/cnf/structhash"

	"github.com/kellydunn/go-opc"

	"github.com/TeamNorCal/wavelamp/model"
)

const (
	opcRetryInterval = 5 * time.Second
)

type LastFrame struct {
	frame *model.Frame
	sync.Mutex
}

type Color struct {
	R, G, B uint8
}

// Strip is the hashable content of one LED update
type Strip struct {
	Pixels []Color
}

// stripFrom converts a frame into one LED color per bar
func stripFrom(frame *model.Frame) (strip *Strip) {
	strip = &Strip{
		Pixels: make([]Color, 0, len(frame.Bars)),
	}
	for _, c := range frame.Colors() {
		strip.Pixels = append(strip.Pixels, Color{R: c.R, G: c.G, B: c.B})
	}
	return strip
}

// StartFadeCandy subscribes to frames and refreshes the LED strip at the
// given server every refresh interval
func StartFadeCandy(server string, refresh time.Duration, subscribeC chan chan *model.Frame, errorC chan<- errors.Error, quitC <-chan struct{}) {

	frameC := make(chan *model.Frame, 1)
	subscribeC <- frameC

	last := &LastFrame{}

	go func() {
		defer close(frameC)
		for {
			select {
			case frame := <-frameC:
				if nil == frame {
					continue
				}
				last.Lock()
				last.frame = frame
				last.Unlock()
			case <-quitC:
				return
			}
		}
	}()

	go runFadeCandyOPC(last, server, refresh, errorC, quitC)
}

func sendStrip(oc *opc.Client, strip *Strip) (err errors.Error) {

	m := opc.NewMessage(0)
	m.SetLength(uint16(len(strip.Pixels) * 3))

	for i, color := range strip.Pixels {
		m.SetPixelColor(i, color.R, color.G, color.B)
	}

	if errGo := oc.Send(m); errGo != nil {
		return errors.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
	return nil
}

func runFadeCandyOPC(status *LastFrame, server string, refresh time.Duration, errorC chan<- errors.Error, quitC <-chan struct{}) {

	last := []byte{}

	oc := opc.NewClient()
	connected := false
	lastAttempt := time.Time{}

	for {
		select {
		case <-time.After(refresh):
			if !connected {
				if time.Since(lastAttempt) < opcRetryInterval {
					continue
				}
				lastAttempt = time.Now()
				if errGo := oc.Connect("tcp", server); errGo != nil {
					reportError(errors.Wrap(errGo).With("url", server).With("stack", stack.Trace().TrimRuntime()), errorC)
					continue
				}
				connected = true
				last = []byte{}
			}

			status.Lock()
			frame := status.frame
			status.Unlock()

			if frame == nil {
				continue
			}
			strip := stripFrom(frame)

			hash := structhash.Md5(strip, 1)
			if bytes.Compare(last, hash) != 0 {
				last = hash
				if err := sendStrip(oc, strip); err != nil {
					connected = false
					reportError(err.With("url", server), errorC)
				}
			}
		case <-quitC:
			return
		}
	}
}
