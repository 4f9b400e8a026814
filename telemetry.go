package wavelamp

// This module publishes every accepted sensor reading, and the color speed
// it produced, to an MQTT broker so that the signal can be charted or
// recorded elsewhere

import (
	"encoding/json"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mgutz/logxi"
)

// ReadingMsg is the payload published for each reading
type ReadingMsg struct {
	Reading    int       `json:"reading"`
	ColorSpeed float64   `json:"color_speed"`
	Timestamp  time.Time `json:"timestamp"`
}

// Telemetry is a ReadingObserver that publishes to MQTT
type Telemetry struct {
	client mqtt.Client
	topic  string
	logger logxi.Logger
}

// NewTelemetry connects to the broker, for example tcp://localhost:1883
func NewTelemetry(broker string, clientID string, topic string) (tel *Telemetry, err errors.Error) {

	tel = &Telemetry{
		topic:  topic,
		logger: logxi.New("telemetry"),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		tel.logger.Info("connected to MQTT broker", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, errGo error) {
		tel.logger.Warn("connection to MQTT broker lost", "broker", broker, "error", errGo.Error())
	})

	tel.client = mqtt.NewClient(opts)
	if token := tel.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error()).With("broker", broker).With("stack", stack.Trace().TrimRuntime())
	}
	return tel, nil
}

// Reading implements ReadingObserver.  Publishing is not waited on so a slow
// broker cannot hold up the read loop
func (tel *Telemetry) Reading(reading int, colorSpeed float64) {
	payload, errGo := json.Marshal(&ReadingMsg{
		Reading:    reading,
		ColorSpeed: colorSpeed,
		Timestamp:  time.Now().UTC(),
	})
	if errGo != nil {
		tel.logger.Warn("reading not encoded", "error", errGo.Error())
		return
	}
	tel.client.Publish(tel.topic, 0, false, payload)
}

// Close disconnects from the broker allowing a short time for queued
// messages to drain
func (tel *Telemetry) Close() {
	tel.client.Disconnect(250)
}
