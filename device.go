package wavelamp

// This module implements the selection and opening of the device that
// supplies sensor telemetry.  Devices are identified using a URL, the
// serial scheme is used for USB serial microcontrollers while the tcp
// scheme reaches a network bridge or the simulator
//
//	serial:///dev/ttyACM0	a specific serial port
//	serial://			the first serial port the host reports
//	tcp://localhost:7070		a line stream served over TCP

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	"go.bug.st/serial"
)

const (
	// BaudRate is the fixed line rate of the sensor device
	BaudRate = 9600

	dialTimeout = 5 * time.Second
)

// Device identifies where telemetry is read from
type Device struct {
	url url.URL

	// Host hooks, replaced when testing
	listPorts  func() ([]string, error)
	openSerial func(name string, mode *serial.Mode) (io.ReadCloser, error)
	dial       func(network string, address string, timeout time.Duration) (io.ReadCloser, error)
}

// NewDevice parses the device URL, an empty string selects the first
// available serial port when connecting
func NewDevice(dev string) (device *Device, err errors.Error) {
	if len(dev) == 0 {
		dev = "serial://"
	}

	u, errGo := url.Parse(dev)
	if errGo != nil {
		return nil, errors.Wrap(errGo).With("device", dev).With("stack", stack.Trace().TrimRuntime())
	}

	switch u.Scheme {
	case "serial", "tcp":
	default:
		errGo := fmt.Errorf("unknown scheme %s for the device URL", u.Scheme)
		return nil, errors.Wrap(errGo).With("device", dev).With("stack", stack.Trace().TrimRuntime())
	}

	return &Device{
		url:       *u,
		listPorts: serial.GetPortsList,
		openSerial: func(name string, mode *serial.Mode) (io.ReadCloser, error) {
			return serial.Open(name, mode)
		},
		dial: func(network string, address string, timeout time.Duration) (io.ReadCloser, error) {
			return net.DialTimeout(network, address, timeout)
		},
	}, nil
}

func (dev *Device) String() string {
	return dev.url.String()
}

// Select resolves the name of the port or address that will be opened.  For
// serial devices without an explicit port this is the first port the host
// enumerates, having none available is an error
func (dev *Device) Select() (name string, err errors.Error) {
	switch dev.url.Scheme {
	case "serial":
		// serial:///dev/ttyACM0 carries the port in the path, serial://COM3
		// in the host
		name = dev.url.Host + dev.url.Path
		if len(name) != 0 {
			return name, nil
		}

		ports, errGo := dev.listPorts()
		if errGo != nil {
			return "", errors.Wrap(errGo).With("device", dev.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		if len(ports) == 0 {
			return "", errors.New("no serial ports available").With("device", dev.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		return ports[0], nil

	case "tcp":
		if len(dev.url.Host) == 0 {
			return "", errors.New("tcp device has no address").With("device", dev.url.String()).With("stack", stack.Trace().TrimRuntime())
		}
		return dev.url.Host, nil
	}

	errGo := fmt.Errorf("unknown scheme %s for the device URL", dev.url.Scheme)
	return "", errors.Wrap(errGo).With("device", dev.url.String()).With("stack", stack.Trace().TrimRuntime())
}

// Open opens the selected port at the fixed baud rate, or dials the
// selected address
func (dev *Device) Open(name string) (stream io.ReadCloser, err errors.Error) {
	switch dev.url.Scheme {
	case "serial":
		mode := &serial.Mode{
			BaudRate: BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		stream, errGo := dev.openSerial(name, mode)
		if errGo != nil {
			return nil, errors.Wrap(errGo).With("port", name).With("baud", BaudRate).With("stack", stack.Trace().TrimRuntime())
		}
		return stream, nil

	case "tcp":
		stream, errGo := dev.dial("tcp", name, dialTimeout)
		if errGo != nil {
			return nil, errors.Wrap(errGo).With("address", name).With("stack", stack.Trace().TrimRuntime())
		}
		return stream, nil
	}

	errGo := fmt.Errorf("unknown scheme %s for the device URL", dev.url.Scheme)
	return nil, errors.Wrap(errGo).With("device", dev.url.String()).With("stack", stack.Trace().TrimRuntime())
}
