package test

import (
	"fmt"
	"testing"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		v       any
		success bool
		known   bool
	}{
		{nil, true, true},
		{true, true, true},
		{false, false, true},
		{error(nil), true, true},
		{fmt.Errorf("broken"), false, true},
		{42, false, false},
	}

	for i, c := range cases {
		success, known := outcome(c.v)
		ExpectEquality(t, success, c.success, i)
		ExpectEquality(t, known, c.known, i)
	}
}

func TestLabel(t *testing.T) {
	ExpectEquality(t, label(nil, "got %d", 1), "got 1")
	ExpectEquality(t, label([]any{"ingest", 3}, "got %d", 1), "ingest/3: got 1")
}

func TestPassingExpectations(t *testing.T) {
	ExpectSuccess(t, true)
	ExpectSuccess(t, nil)
	ExpectFailure(t, false)
	ExpectFailure(t, fmt.Errorf("broken"))
	ExpectEquality(t, "a", "a")
	ExpectApproximate(t, 0.1+0.2, 0.3, 1e-12)
	DemandEquality(t, 2, 2)
}
