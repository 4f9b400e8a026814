package wavelamp

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/TeamNorCal/wavelamp/model"
	"github.com/TeamNorCal/wavelamp/test"
)

// chunkStream returns at most one chunk per read followed by end, which is either
// io.EOF or a device fault
type chunkStream struct {
	chunks []string
	end    error
	closed bool
	sync.Mutex
}

func (s *chunkStream) Read(p []byte) (n int, err error) {
	s.Lock()
	defer s.Unlock()
	if len(s.chunks) == 0 {
		return 0, s.end
	}
	n = copy(p, s.chunks[0])
	if n < len(s.chunks[0]) {
		s.chunks[0] = s.chunks[0][n:]
	} else {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

func (s *chunkStream) Close() error {
	s.Lock()
	s.closed = true
	s.Unlock()
	return nil
}

type countingObserver struct {
	readings []int
	speeds   []float64
	sync.Mutex
}

func (obs *countingObserver) Reading(reading int, colorSpeed float64) {
	obs.Lock()
	obs.readings = append(obs.readings, reading)
	obs.speeds = append(obs.speeds, colorSpeed)
	obs.Unlock()
}

func fakeDevice(t *testing.T, stream io.ReadCloser) (dev *Device, baud *int) {
	t.Helper()

	dev, err := NewDevice("serial:///dev/ttyFAKE0")
	test.DemandEquality(t, err == nil, true)

	baud = new(int)
	dev.openSerial = func(name string, mode *serial.Mode) (io.ReadCloser, error) {
		*baud = mode.BaudRate
		return stream, nil
	}
	return dev, baud
}

func TestIngestEndToEnd(t *testing.T) {
	stream := &chunkStream{
		chunks: []string{"300\n", "bad\n", "1023\n"},
		end:    io.EOF,
	}
	dev, baud := fakeDevice(t, stream)

	params := model.NewSpeedParameters()
	ing := NewIngestor(dev, params)
	obs := &countingObserver{}
	ing.AddObserver(obs)

	test.ExpectSuccess(t, ing.Connect(make(chan struct{})))
	test.ExpectEquality(t, *baud, 9600)
	test.ExpectEquality(t, ing.State(), Closed)
	test.ExpectEquality(t, stream.closed, true)

	test.DemandEquality(t, len(obs.readings), 2)
	test.ExpectEquality(t, obs.readings[0], 300)
	test.ExpectEquality(t, obs.readings[1], 1023)

	first := Smooth(model.DefaultSpeedFactor, TargetColorSpeed(300))
	second := Smooth(first, TargetColorSpeed(1023))

	speeds := params.Snapshot()
	test.ExpectApproximate(t, speeds.ColorSpeedFactor, second, 1e-15)
	test.ExpectApproximate(t, speeds.LastColorSpeedFactor, second, 1e-15)
	if d04, d01 := speeds.ColorSpeedFactor-0.04, speeds.ColorSpeedFactor-0.01; abs(d04) >= abs(d01) {
		t.Errorf("final color speed %v is not closer to 0.04 than to 0.01", speeds.ColorSpeedFactor)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestIngestRejectsMalformedAndOutOfRange(t *testing.T) {
	stream := &chunkStream{
		chunks: []string{"abc\n", "\n", "12.5.3\n", "-1\n", "1024\n", "99999\n"},
		end:    io.EOF,
	}
	dev, _ := fakeDevice(t, stream)

	params := model.NewSpeedParameters()
	before := params.Snapshot()

	ing := NewIngestor(dev, params)
	test.ExpectSuccess(t, ing.Connect(make(chan struct{})))

	test.ExpectEquality(t, params.Snapshot(), before)
}

func TestIngestDiscardsOversizedLine(t *testing.T) {
	stream := &chunkStream{
		chunks: []string{strings.Repeat("x", 70000) + "\n", "1023\n"},
		end:    io.EOF,
	}
	dev, _ := fakeDevice(t, stream)

	params := model.NewSpeedParameters()
	ing := NewIngestor(dev, params)
	obs := &countingObserver{}
	ing.AddObserver(obs)

	test.ExpectSuccess(t, ing.Connect(make(chan struct{})))

	speeds := params.Snapshot()
	test.ExpectEquality(t, speeds.Smoothed, true)
	test.ExpectApproximate(t, speeds.ColorSpeedFactor, Smooth(model.DefaultSpeedFactor, TargetColorSpeed(1023)), 1e-15)
	test.DemandEquality(t, len(obs.readings), 1)
	test.ExpectEquality(t, obs.readings[0], 1023)
}

func TestIngestOversizedLineAtEnd(t *testing.T) {
	stream := &chunkStream{
		chunks: []string{"512\n", strings.Repeat("7", 9000)},
		end:    io.EOF,
	}
	dev, _ := fakeDevice(t, stream)

	params := model.NewSpeedParameters()
	ing := NewIngestor(dev, params)

	test.ExpectSuccess(t, ing.Connect(make(chan struct{})))
	test.ExpectEquality(t, ing.State(), Closed)
	test.ExpectApproximate(t, params.Snapshot().ColorSpeedFactor, Smooth(model.DefaultSpeedFactor, TargetColorSpeed(512)), 1e-15)
}

func TestIngestRangeBoundaries(t *testing.T) {
	params := model.NewSpeedParameters()
	dev, _ := fakeDevice(t, &chunkStream{end: io.EOF})
	ing := NewIngestor(dev, params)

	test.ExpectSuccess(t, ing.process("0"))
	test.ExpectSuccess(t, ing.process("1023"))
	test.ExpectFailure(t, ing.process("-1"))
	test.ExpectFailure(t, ing.process("1024"))
}

func TestHueFallbackTransition(t *testing.T) {
	stream := &chunkStream{
		chunks: []string{"512\n"},
		end:    io.EOF,
	}
	dev, _ := fakeDevice(t, stream)

	params := model.NewSpeedParameters()
	params.SetLastColorSpeed(0.02)

	canvas, err := NewCanvas(480, 400)
	test.DemandEquality(t, err == nil, true)
	renderer := NewRenderer(canvas, params)

	speeds := params.Snapshot()
	test.ExpectEquality(t, speeds.Smoothed, false)
	test.ExpectEquality(t, speeds.HueSpeed(), 0.02)

	frame := renderer.Layout(100, speeds)
	test.ExpectApproximate(t, frame.Bars[0].Hue, Hue(100, 0, 0.02), 1e-12)

	ing := NewIngestor(dev, params)
	test.ExpectSuccess(t, ing.Connect(make(chan struct{})))

	speeds = params.Snapshot()
	expected := Smooth(model.DefaultSpeedFactor, TargetColorSpeed(512))
	test.ExpectEquality(t, speeds.Smoothed, true)
	test.ExpectApproximate(t, speeds.ColorSpeedFactor, expected, 1e-15)
	test.ExpectEquality(t, speeds.HueSpeed(), speeds.ColorSpeedFactor)

	frame = renderer.Layout(100, speeds)
	test.ExpectApproximate(t, frame.Bars[0].Hue, Hue(100, 0, expected), 1e-12)
}

func TestIngestSelectionFailure(t *testing.T) {
	dev, err := NewDevice("")
	test.DemandEquality(t, err == nil, true)
	dev.listPorts = func() ([]string, error) {
		return []string{}, nil
	}
	opened := false
	dev.openSerial = func(name string, mode *serial.Mode) (io.ReadCloser, error) {
		opened = true
		return nil, fmt.Errorf("unexpected open of %s", name)
	}

	params := model.NewSpeedParameters()
	before := params.Snapshot()

	ing := NewIngestor(dev, params)
	test.ExpectFailure(t, ing.Connect(make(chan struct{})))
	test.ExpectEquality(t, opened, false)
	test.ExpectEquality(t, ing.State(), Absent)
	test.ExpectEquality(t, params.Snapshot(), before)
}

func TestIngestAutoSelectsFirstPort(t *testing.T) {
	dev, err := NewDevice("")
	test.DemandEquality(t, err == nil, true)
	dev.listPorts = func() ([]string, error) {
		return []string{"/dev/ttyACM3", "/dev/ttyUSB0"}, nil
	}
	name, err := dev.Select()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, name, "/dev/ttyACM3")
}

func TestIngestOpenFailure(t *testing.T) {
	dev, err := NewDevice("serial:///dev/ttyFAKE0")
	test.DemandEquality(t, err == nil, true)

	attempts := 0
	dev.openSerial = func(name string, mode *serial.Mode) (io.ReadCloser, error) {
		attempts++
		return nil, fmt.Errorf("%s is busy", name)
	}

	params := model.NewSpeedParameters()
	ing := NewIngestor(dev, params)
	test.ExpectFailure(t, ing.Connect(make(chan struct{})))
	test.ExpectEquality(t, attempts, 1)
	test.ExpectEquality(t, ing.State(), Absent)
	test.ExpectEquality(t, params.Snapshot().Smoothed, false)
}

func TestIngestStreamFault(t *testing.T) {
	stream := &chunkStream{
		chunks: []string{"600\n"},
		end:    fmt.Errorf("device unplugged"),
	}
	dev, _ := fakeDevice(t, stream)

	params := model.NewSpeedParameters()
	ing := NewIngestor(dev, params)
	test.ExpectFailure(t, ing.Connect(make(chan struct{})))
	test.ExpectEquality(t, ing.State(), Closed)
	test.ExpectEquality(t, stream.closed, true)

	// The reading before the fault remains in effect
	test.ExpectApproximate(t, params.Snapshot().ColorSpeedFactor, Smooth(model.DefaultSpeedFactor, TargetColorSpeed(600)), 1e-15)
}

func TestIngestQuitStopsReading(t *testing.T) {
	pr, pw := io.Pipe()
	dev, _ := fakeDevice(t, pr)

	params := model.NewSpeedParameters()
	ing := NewIngestor(dev, params)
	obs := &countingObserver{}
	ing.AddObserver(obs)

	quitC := make(chan struct{})
	resultC := make(chan error, 1)
	go func() {
		if err := ing.Connect(quitC); err != nil {
			resultC <- err
			return
		}
		resultC <- nil
	}()

	_, errGo := io.WriteString(pw, "100\n")
	test.ExpectSuccess(t, errGo)

	// A second connection is refused while the first is reading
	deadline := time.Now().Add(2 * time.Second)
	for ing.State() != Reading && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	test.DemandEquality(t, ing.State(), Reading)
	test.ExpectFailure(t, ing.Connect(quitC))

	close(quitC)

	select {
	case err := <-resultC:
		test.ExpectSuccess(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop after the quit channel was closed")
	}
	test.ExpectEquality(t, ing.State(), Closed)

	obs.Lock()
	test.ExpectEquality(t, len(obs.readings), 1)
	obs.Unlock()
}

func TestDeviceSchemes(t *testing.T) {
	_, err := NewDevice("http://localhost/")
	test.ExpectFailure(t, err)

	dev, err := NewDevice("tcp://localhost:7070")
	test.DemandEquality(t, err == nil, true)
	name, err := dev.Select()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, name, "localhost:7070")

	dev, err = NewDevice("serial://COM3")
	test.DemandEquality(t, err == nil, true)
	name, err = dev.Select()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, name, "COM3")
}
