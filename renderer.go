package wavelamp

// This module implements the renderer, it produces one frame of the
// waveform per refresh tick for as long as the process runs.  The renderer
// never waits on the ingestor, it reads a snapshot of the shared speed
// parameters at the start of each frame

import (
	"image/color"
	"sync/atomic"
	"time"

	"github.com/TeamNorCal/wavelamp/model"
)

var (
	background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Renderer owns the animation clock and paints frames onto a canvas
type Renderer struct {
	canvas *Canvas
	params *model.SpeedParameters

	// Vertical midpoint of the surface when the renderer was created, bars
	// are centred on this line even if the surface changes later
	center float64

	// Animation clock, one tick per rendered frame.  Only the rendering
	// goroutine advances it, Tick may be read from anywhere
	tick atomic.Uint64
}

func NewRenderer(canvas *Canvas, params *model.SpeedParameters) (renderer *Renderer) {
	return &Renderer{
		canvas: canvas,
		params: params,
		center: float64(canvas.Height()) / 2,
	}
}

// Tick returns the number of frames rendered so far
func (renderer *Renderer) Tick() uint64 {
	return renderer.tick.Load()
}

// Layout computes the bars of the frame for a given tick and set of speeds
// without touching the canvas
func (renderer *Renderer) Layout(tick uint64, speeds model.Speeds) (frame *model.Frame) {
	frame = &model.Frame{
		Tick:   tick,
		Width:  renderer.canvas.Width(),
		Height: renderer.canvas.Height(),
		Bars:   make([]model.Bar, 0, BufferLength),
		Speeds: speeds,
	}

	barWidth := float64(frame.Width) / BufferLength
	hueSpeed := speeds.HueSpeed()

	x := 0.0
	for i := 0; i < BufferLength; i++ {
		height := BarHeight(tick, i, speeds.SpeedFactor)
		hue := Hue(tick, i, hueSpeed)
		frame.Bars = append(frame.Bars, model.Bar{
			X:      x,
			Y:      renderer.center - height/2,
			Width:  barWidth,
			Height: height,
			Hue:    hue,
			Color:  HueColor(hue),
		})
		x += barWidth + BarGap
	}
	return frame
}

// Step renders one frame onto the canvas and advances the clock
func (renderer *Renderer) Step() (frame *model.Frame) {
	frame = renderer.Layout(renderer.tick.Load(), renderer.params.Snapshot())

	renderer.canvas.Lock()
	renderer.canvas.clear()
	renderer.canvas.fill(background)
	for _, bar := range frame.Bars {
		renderer.canvas.fillRect(bar.X, bar.Y, bar.Width, bar.Height, bar.Color)
	}
	renderer.canvas.Unlock()

	renderer.tick.Add(1)
	return frame
}

// Run renders a frame every refresh interval until quitC is closed.  Frames
// are offered to frameC without blocking, a busy consumer simply misses
// frames
func (renderer *Renderer) Run(refresh time.Duration, frameC chan<- *model.Frame, quitC <-chan struct{}) {

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		frame := renderer.Step()

		if frameC != nil {
			select {
			case frameC <- frame:
			default:
			}
		}

		select {
		case <-ticker.C:
		case <-quitC:
			return
		}
	}
}
