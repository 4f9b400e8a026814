package model

// This module defines the frames produced by the renderer and handed to the
// output devices

import (
	"image/color"
)

// Bar is one vertical bar of the waveform in canvas coordinates
type Bar struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"w"`
	Height float64    `json:"h"`
	Hue    float64    `json:"hue"`
	Color  color.RGBA `json:"color"`
}

// Frame is the complete description of one rendered frame
type Frame struct {
	Tick   uint64 `json:"tick"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bars   []Bar  `json:"bars"`
	Speeds Speeds `json:"speeds"`
}

// Colors returns the color of each bar in order, one entry per LED for
// pixel strip outputs
func (frame *Frame) Colors() (colors []color.RGBA) {
	colors = make([]color.RGBA, len(frame.Bars))
	for i, bar := range frame.Bars {
		colors[i] = bar.Color
	}
	return colors
}
