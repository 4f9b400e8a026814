package wavelamp

// This file contains the conversion of raw sensor readings into the color
// speed used by the renderer

import (
	"strconv"
	"strings"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"
)

const (
	// MinReading and MaxReading bound a 10 bit ADC sample, inclusive
	MinReading = 0
	MaxReading = 1023

	// MinColorSpeed is the color speed of a zero reading, a full scale
	// reading adds ColorSpeedSpan
	MinColorSpeed  = 0.01
	ColorSpeedSpan = 0.03

	// SmoothingFactor is the fraction of the distance to the target covered
	// by each accepted reading. The rate therefore follows the rate at which
	// the device sends lines rather than wall clock time.
	SmoothingFactor = 0.1
)

// ParseReading parses one line of device telemetry as a base 10 integer.
// Surrounding whitespace is ignored, anything else that is not an integer is
// an error.
func ParseReading(line string) (reading int, err errors.Error) {
	text := strings.TrimSpace(line)
	reading, errGo := strconv.Atoi(text)
	if errGo != nil {
		return 0, errors.Wrap(errGo).With("line", text).With("stack", stack.Trace().TrimRuntime())
	}
	return reading, nil
}

// InRange reports whether reading is a valid 10 bit sample
func InRange(reading int) bool {
	return reading >= MinReading && reading <= MaxReading
}

// TargetColorSpeed maps a reading linearly onto [0.01, 0.04]
func TargetColorSpeed(reading int) float64 {
	return MinColorSpeed + float64(reading)/MaxReading*ColorSpeedSpan
}

// Smooth moves current a fixed fraction of the way toward target
func Smooth(current float64, target float64) float64 {
	return current + SmoothingFactor*(target-current)
}
