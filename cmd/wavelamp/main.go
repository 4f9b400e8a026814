package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/karlmutch/errors"

	"github.com/mgutz/logxi" // Using a forked copy of this package results in build issues

	"github.com/TeamNorCal/wavelamp"
	"github.com/TeamNorCal/wavelamp/version"

	"github.com/karlmutch/envflag" // Forked copy of https://github.com/GoBike/envflag
)

var (
	logger = logxi.New("wavelamp")

	verbose = flag.Bool("v", false, "When enabled will print internal logging for this tool")

	listen = flag.String("listen", ":8080", "Address the waveform page and connect button are served on")
	device = flag.String("device", "", "Sensor device URL, serial:///dev/ttyACM0 or tcp://host:port, empty selects the first serial port")

	width  = flag.Int("width", 1280, "Width in pixels of the rendered surface")
	height = flag.Int("height", 720, "Height in pixels of the rendered surface")
	fps    = flag.Int("fps", 60, "Frames rendered per second")

	opcServer = flag.String("opc", "", "host:port of a fadecandy OPC server driving one LED per waveform bar, empty to disable")

	mqttBroker = flag.String("mqtt-broker", "", "MQTT broker URL readings are published to, for example tcp://localhost:1883, empty to disable")
	mqttTopic  = flag.String("mqtt-topic", "wavelamp/reading", "MQTT topic readings are published on")

	monitor = flag.Duration("monitor", 0, "Interval at which rendered frames are logged at debug level, 0 to disable")
)

func usage() {
	fmt.Fprintln(os.Stderr, path.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "usage: ", os.Args[0], "[options]       sensor → serial → waveform (wavelamp)      ", version.GitHash, "    ", version.BuildTime)
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "wavelamp renders an animated waveform whose colors rotate at a speed driven by a serial attached sensor")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment Variables:")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options can also be extracted from environment variables by changing dashes '-' to underscores and using upper case.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "log levels are handled by the LOGXI env variables, these are documented at https://github.com/mgutz/logxi")
}

func init() {
	flag.Usage = usage
}

func main() {

	// Parse the CLI flags
	if !flag.Parsed() {
		envflag.Parse()
	}

	// Turn off logging regardless of the default levels if the verbose flag is not enabled.
	// By design this is a CLI tool and outputs information that is expected to be used by shell
	// scripts etc
	//
	if *verbose {
		logger.SetLevel(logxi.LevelDebug)
	}

	logger.Debug(fmt.Sprintf("%s built at %s, against commit id %s\n", os.Args[0], version.BuildTime, version.GitHash))

	if *fps <= 0 {
		fmt.Fprintln(os.Stderr, "the fps option must be a positive number")
		os.Exit(-1)
	}

	quitC := make(chan struct{})
	msgC := make(chan string, 1)
	errorC := make(chan errors.Error, 1)

	stopC := make(chan os.Signal, 1)
	signal.Notify(stopC, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopC
		logger.Info("stopping")
		close(quitC)
	}()

	go runTUI(msgC, errorC, quitC)

	cfg := &wavelamp.GatewayConfig{
		Width:        *width,
		Height:       *height,
		Refresh:      time.Second / time.Duration(*fps),
		Device:       *device,
		Listen:       *listen,
		OPCServer:    *opcServer,
		MQTTBroker:   *mqttBroker,
		MQTTClientID: fmt.Sprintf("wavelamp-%d", os.Getpid()),
		MQTTTopic:    *mqttTopic,
	}

	gw := &wavelamp.Gateway{}
	subscribeC, err := gw.Start(cfg, errorC, quitC)
	if err != nil {
		logger.Fatal(err.Error())
		os.Exit(-1)
	}

	if *monitor > 0 {
		go runMonitoring(subscribeC, *monitor, quitC)
	}

	msgC <- fmt.Sprintf("waveform served at %s\n", *listen)

	<-quitC

	// Allow the components a moment to release devices and sockets
	time.Sleep(250 * time.Millisecond)
}
