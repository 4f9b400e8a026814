package main

import (
	"time"

	"github.com/TeamNorCal/wavelamp/model"
)

// This file implements a monitor that subscribes to and logs rendered
// frames, sampled so that the log is not flooded at the display rate

func runMonitoring(subscribeC chan chan *model.Frame, interval time.Duration, quitC <-chan struct{}) {

	frameC := make(chan *model.Frame, 1)
	defer close(frameC)
	subscribeC <- frameC

	last := time.Time{}

	for {
		select {
		case frame := <-frameC:
			if frame == nil || time.Since(last) < interval {
				continue
			}
			last = time.Now()
			logger.Debug("frame",
				"tick", frame.Tick,
				"speedFactor", frame.Speeds.SpeedFactor,
				"colorSpeed", frame.Speeds.ColorSpeedFactor,
				"hueSpeed", frame.Speeds.HueSpeed(),
				"smoothed", frame.Speeds.Smoothed)
		case <-quitC:
			return
		}
	}
}
