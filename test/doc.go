// Package test holds the expectation helpers shared by the package tests.
//
// ExpectSuccess and ExpectFailure interpret bool and error values. A nil
// value is a success, which matches the usual meaning of a nil error.
//
// ExpectApproximate is the float comparison used for the smoothing and
// waveform arithmetic where exact equality would be brittle.
package test
