package wavelamp

// This file contains the waveform animation math.  Every function here is a
// pure function of the clock tick and the speed parameters so that a frame
// can be reproduced exactly from its inputs

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// BufferLength is the number of bars the canvas width is split into
	BufferLength = 48

	// BaseHeight is the height of a bar at the trough of the wave, the
	// crest reaches (1 + HeightSwing) times this
	BaseHeight  = 50.0
	HeightSwing = 6.0

	// PhaseDelay is the number of ticks each bar lags the one to its left
	PhaseDelay = 5

	// BarGap is the horizontal space added after every bar
	BarGap = 1.0
)

// Delay is the phase delayed oscillation of bar i at tick, in [0, 1].  The
// clock term is reduced modulo 2*Pi before the bar lag is taken off
func Delay(tick uint64, i int, speedFactor float64) float64 {
	phase := math.Mod(float64(tick)*speedFactor, 2*math.Pi) - float64(i*PhaseDelay)*speedFactor
	return math.Sin(phase)*0.5 + 0.5
}

// BarHeight is the height of bar i at tick, in [BaseHeight, 7*BaseHeight]
func BarHeight(tick uint64, i int, speedFactor float64) float64 {
	return BaseHeight * (1 + Delay(tick, i, speedFactor)*HeightSwing)
}

// Hue is the hue in degrees of bar i at tick, the rotation term is reduced
// modulo 360 before use so very long running clocks keep their resolution
func Hue(tick uint64, i int, hueSpeed float64) float64 {
	base := float64(i) / BufferLength * 360
	rotation := math.Mod(float64(tick)*hueSpeed, 360)
	return math.Mod(base+rotation, 360)
}

// HueColor converts a hue into a fully saturated, half lightness color
func HueColor(hue float64) color.RGBA {
	r, g, b := colorful.Hsl(hue, 1.0, 0.5).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
