package main

// The simulator stands in for the microcontroller, it plays a scenario of
// telemetry lines either to clients connecting over TCP or out of a serial
// port that is cross connected to the one wavelamp reads from

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	"github.com/mgutz/logxi"

	"go.bug.st/serial"
)

var (
	listen       = flag.String("listen", ":7070", "Address to serve the telemetry lines on, ignored when a serial port is specified")
	port         = flag.String("port", "", "Serial port to write telemetry lines to, empty to serve over TCP")
	scenarioPath = flag.String("scenario", "scenarios/sweep.yaml", "YAML scenario file describing the lines to be sent")
	scale        = flag.Int("scale", 1, "factor by which to accelerate the rate lines are sent at")
)

var (
	// create Logger interface
	logW = logxi.NewLogger(logxi.NewConcurrentWriter(os.Stdout), "wavelamp-simulator")
)

func main() {

	flag.Parse()

	fn, errGo := filepath.Abs(*scenarioPath)
	if errGo != nil {
		logxi.Fatal(errGo.Error())
		os.Exit(-1)
	}

	scenario, err := loadScenario(fn)
	if err != nil {
		logxi.Fatal(err.Error())
		os.Exit(-1)
	}
	if *scale > 1 {
		scenario.Interval = scenario.Interval / time.Duration(*scale)
	}

	logW.Info("loaded scenario", "file", fn, "lines", len(scenario.Lines()), "interval", scenario.Interval.String(), "loop", scenario.Loop)

	if len(*port) != 0 {
		if err = servePort(*port, scenario); err != nil {
			logW.Warn(err.Error())
			os.Exit(-1)
		}
		return
	}

	if err = serveTCP(*listen, scenario); err != nil {
		logW.Warn(err.Error())
		os.Exit(-1)
	}
}

// servePort plays the scenario out of a serial port at the sensor baud rate
func servePort(name string, scenario *Scenario) (err errors.Error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, errGo := serial.Open(name, mode)
	if errGo != nil {
		return errors.Wrap(errGo).With("port", name).With("stack", stack.Trace().TrimRuntime())
	}
	defer p.Close()

	logW.Info("playing scenario", "port", name)
	return play(p, scenario, nil)
}

// serveTCP plays the scenario independently to every client that connects
func serveTCP(address string, scenario *Scenario) (err errors.Error) {
	listener, errGo := net.Listen("tcp", address)
	if errGo != nil {
		return errors.Wrap(errGo).With("listen", address).With("stack", stack.Trace().TrimRuntime())
	}
	defer listener.Close()

	logW.Info("serving scenario", "listen", address)

	wg := sync.WaitGroup{}
	defer wg.Wait()

	for {
		conn, errGo := listener.Accept()
		if errGo != nil {
			return errors.Wrap(errGo).With("listen", address).With("stack", stack.Trace().TrimRuntime())
		}

		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			defer conn.Close()

			logW.Debug(fmt.Sprintf("client %s connected", conn.RemoteAddr()))
			if err := play(conn, scenario, nil); err != nil {
				logW.Debug(fmt.Sprintf("client %s finished", conn.RemoteAddr()), "error", err.Error())
			}
		}(conn)
	}
}

// play writes the scenario lines at the scenario interval until the lines
// run out, or forever when the scenario loops and the writer accepts data
func play(w io.Writer, scenario *Scenario, quitC <-chan struct{}) (err errors.Error) {
	lines := scenario.Lines()
	if len(lines) == 0 {
		return nil
	}

	tick := time.NewTicker(scenario.Interval)
	defer tick.Stop()

	for {
		for _, line := range lines {
			if _, errGo := io.WriteString(w, line+"\n"); errGo != nil {
				return errors.Wrap(errGo).With("line", line).With("stack", stack.Trace().TrimRuntime())
			}
			logW.Trace("sent", "line", line)

			select {
			case <-tick.C:
			case <-quitC:
				return nil
			}
		}
		if !scenario.Loop {
			return nil
		}
	}
}
