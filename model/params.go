package model

// This module defines the parameters shared between the signal ingestor,
// which is the only writer of the color speed, and the renderer which takes
// a snapshot of them once per frame

import (
	"sync"
)

const (
	// DefaultSpeedFactor is the phase speed of the waveform and the starting
	// value of every speed parameter
	DefaultSpeedFactor = 0.05
)

// Speeds is a point in time copy of the shared parameters
type Speeds struct {
	SpeedFactor       float64 `json:"speedFactor"`
	TargetSpeedFactor float64 `json:"targetSpeedFactor"` // Reserved for retargeting the phase speed, not yet driven

	ColorSpeedFactor     float64 `json:"colorSpeedFactor"`
	LastColorSpeedFactor float64 `json:"lastColorSpeedFactor"`

	// Smoothed is set by the first accepted reading and never cleared
	Smoothed bool `json:"smoothed"`
}

// HueSpeed is the color speed the renderer should rotate hues with. Until a
// reading has been smoothed in the last recorded value is used.
func (s Speeds) HueSpeed() float64 {
	if !s.Smoothed {
		return s.LastColorSpeedFactor
	}
	return s.ColorSpeedFactor
}

// SpeedParameters is the mutable state coupling the ingestor to the renderer
type SpeedParameters struct {
	speeds Speeds
	sync.Mutex
}

// NewSpeedParameters returns parameters with every speed at its default
func NewSpeedParameters() (params *SpeedParameters) {
	return &SpeedParameters{
		speeds: Speeds{
			SpeedFactor:          DefaultSpeedFactor,
			TargetSpeedFactor:    DefaultSpeedFactor,
			ColorSpeedFactor:     DefaultSpeedFactor,
			LastColorSpeedFactor: DefaultSpeedFactor,
		},
	}
}

// Snapshot copies the current parameters
func (params *SpeedParameters) Snapshot() (speeds Speeds) {
	params.Lock()
	defer params.Unlock()
	return params.speeds
}

// UpdateColorSpeed applies fn to the current color speed and records the
// result as both the current and last color speed, in one step
func (params *SpeedParameters) UpdateColorSpeed(fn func(current float64) float64) (updated float64) {
	params.Lock()
	defer params.Unlock()

	updated = fn(params.speeds.ColorSpeedFactor)
	params.speeds.ColorSpeedFactor = updated
	params.speeds.LastColorSpeedFactor = updated
	params.speeds.Smoothed = true
	return updated
}

// SetLastColorSpeed overrides the fallback color speed used before any
// reading was smoothed, for example to resume from a previous run
func (params *SpeedParameters) SetLastColorSpeed(speed float64) {
	params.Lock()
	params.speeds.LastColorSpeedFactor = speed
	params.Unlock()
}
