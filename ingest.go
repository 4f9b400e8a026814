package wavelamp

// This module implements the signal ingestor.  Once asked to connect it
// selects and opens the telemetry device and then reads newline delimited
// sensor readings until the device closes, fails, or the quit channel is
// closed.  Each accepted reading is smoothed into the shared color speed
// that the renderer picks up on its next frame

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	"github.com/mgutz/logxi"

	"github.com/TeamNorCal/wavelamp/model"
)

// ConnState tracks the lifecycle of the single device connection
type ConnState int

const (
	Absent ConnState = iota
	Selecting
	Reading
	Closed
)

func (state ConnState) String() string {
	switch state {
	case Absent:
		return "absent"
	case Selecting:
		return "selecting"
	case Reading:
		return "reading"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// ReadingObserver is notified of every accepted reading along with the
// color speed it was smoothed into
type ReadingObserver interface {
	Reading(reading int, colorSpeed float64)
}

// Ingestor owns the device connection and is the only writer of the
// color speed held in the shared parameters
type Ingestor struct {
	device    *Device
	params    *model.SpeedParameters
	observers []ReadingObserver
	state     ConnState
	logger    logxi.Logger
	sync.Mutex
}

func NewIngestor(device *Device, params *model.SpeedParameters) (ing *Ingestor) {
	return &Ingestor{
		device:    device,
		params:    params,
		observers: []ReadingObserver{},
		logger:    logxi.New("ingest"),
	}
}

// AddObserver registers an observer for accepted readings, it must be
// called before Connect
func (ing *Ingestor) AddObserver(observer ReadingObserver) {
	ing.Lock()
	ing.observers = append(ing.observers, observer)
	ing.Unlock()
}

// State returns the current connection state
func (ing *Ingestor) State() (state ConnState) {
	ing.Lock()
	defer ing.Unlock()
	return ing.state
}

func (ing *Ingestor) setState(state ConnState) {
	ing.Lock()
	ing.state = state
	ing.Unlock()
	ing.logger.Info("connection state", "state", state.String(), "device", ing.device.String())
}

// Connect selects and opens the device and then consumes readings until
// the stream ends, fails, or quitC is closed.  It blocks for the lifetime
// of the connection.
//
// A normal end of stream, including one caused by quitC, returns nil.  The
// shared parameters are left untouched by selection and open failures.
func (ing *Ingestor) Connect(quitC <-chan struct{}) (err errors.Error) {
	ing.Lock()
	if ing.state == Selecting || ing.state == Reading {
		state := ing.state
		ing.Unlock()
		err = errors.New("device connection already active").With("state", state.String()).With("stack", stack.Trace().TrimRuntime())
		ing.logger.Warn("connect refused", "error", err.Error())
		return err
	}
	ing.state = Selecting
	ing.Unlock()

	ing.logger.Info("requesting device", "device", ing.device.String())

	name, err := ing.device.Select()
	if err != nil {
		ing.logger.Error("device selection failed", "error", err.Error())
		ing.setState(Absent)
		return err
	}
	ing.logger.Info("device selected", "port", name)

	stream, err := ing.device.Open(name)
	if err != nil {
		ing.logger.Error("device open failed", "port", name, "error", err.Error())
		ing.setState(Absent)
		return err
	}
	ing.logger.Info("device opened", "port", name, "baud", BaudRate)

	ing.setState(Reading)
	defer ing.setState(Closed)

	if err = ing.ingest(stream, quitC); err != nil {
		ing.logger.Error("device read failed", "port", name, "error", err.Error())
		return err.With("port", name)
	}
	return nil
}

// ingest runs the read loop over an opened stream.  Lines longer than the
// read buffer are dropped whole and reading carries on with the next line
func (ing *Ingestor) ingest(stream io.ReadCloser, quitC <-chan struct{}) (err errors.Error) {

	closer := sync.Once{}
	closeStream := func() {
		closer.Do(func() { stream.Close() })
	}
	defer closeStream()

	// Closing the stream is the only way to unblock a pending read so the
	// quit channel is watched alongside the loop
	doneC := make(chan struct{})
	defer close(doneC)

	stoppedC := make(chan struct{})
	go func() {
		select {
		case <-quitC:
			close(stoppedC)
			closeStream()
		case <-doneC:
		}
	}()

	ing.logger.Info("reading data")

	reader := bufio.NewReader(stream)
	for {
		line, errGo := reader.ReadSlice('\n')
		switch {
		case errGo == bufio.ErrBufferFull:
			errGo = skipLine(reader)
			ing.logger.Warn("reading discarded, line too long", "limit", reader.Size())
		case len(line) != 0:
			ing.process(string(bytes.TrimRight(line, "\r\n")))
		}
		if errGo == nil {
			continue
		}

		select {
		case <-stoppedC:
			ing.logger.Info("device closed on request")
			return nil
		default:
		}
		if errGo == io.EOF {
			ing.logger.Info("device stream ended")
			return nil
		}
		return errors.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
}

// skipLine consumes input up to and including the next newline
func skipLine(reader *bufio.Reader) (errGo error) {
	for {
		if _, errGo = reader.ReadSlice('\n'); errGo != bufio.ErrBufferFull {
			return errGo
		}
	}
}

// process handles a single line, returning true if it altered the
// color speed
func (ing *Ingestor) process(line string) (accepted bool) {
	ing.logger.Debug("received", "line", line)

	reading, err := ParseReading(line)
	if err != nil {
		ing.logger.Warn("reading not a number", "error", err.Error())
		return false
	}

	if !InRange(reading) {
		ing.logger.Warn("reading out of range", "reading", reading, "min", MinReading, "max", MaxReading)
		return false
	}

	target := TargetColorSpeed(reading)
	speed := ing.params.UpdateColorSpeed(func(current float64) float64 {
		return Smooth(current, target)
	})
	ing.logger.Debug("color speed updated", "reading", reading, "target", target, "colorSpeed", speed)

	ing.Lock()
	observers := ing.observers
	ing.Unlock()

	for _, observer := range observers {
		observer.Reading(reading, speed)
	}
	return true
}
