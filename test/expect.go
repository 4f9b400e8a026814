package test

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// outcome reduces a bool or error to whether it signals success.  known is
// false for any other type.
func outcome(v any) (success bool, known bool) {
	switch v := v.(type) {
	case nil:
		return true, true
	case bool:
		return v, true
	case error:
		return v == nil, true
	}
	return false, false
}

// label prefixes a message with the caller supplied tags, joined by '/'
func label(tags []any, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if len(tags) == 0 {
		return msg
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, fmt.Sprint(tag))
	}
	return strings.Join(parts, "/") + ": " + msg
}

// ExpectSuccess reports an error unless v is true, a nil error or nil
func ExpectSuccess(t *testing.T, v any, tags ...any) bool {
	t.Helper()

	success, known := outcome(v)
	if !known {
		t.Fatal(label(tags, "cannot judge success of a %T", v))
		return false
	}
	if !success {
		t.Error(label(tags, "wanted success, got %v", v))
	}
	return success
}

// ExpectFailure reports an error unless v is false or a non nil error
func ExpectFailure(t *testing.T, v any, tags ...any) bool {
	t.Helper()

	success, known := outcome(v)
	if !known {
		t.Fatal(label(tags, "cannot judge failure of a %T", v))
		return false
	}
	if success {
		t.Error(label(tags, "wanted failure, got %v", v))
	}
	return !success
}

func ExpectEquality[T comparable](t *testing.T, got T, want T, tags ...any) bool {
	t.Helper()

	if got == want {
		return true
	}
	t.Error(label(tags, "got %v, want %v (%T)", got, want, got))
	return false
}

// ExpectApproximate compares floats within an absolute tolerance
func ExpectApproximate(t *testing.T, got float64, want float64, tolerance float64, tags ...any) bool {
	t.Helper()

	if diff := math.Abs(got - want); diff <= tolerance {
		return true
	}
	t.Error(label(tags, "got %v, want %v within %v", got, want, tolerance))
	return false
}

// DemandEquality stops the test when got differs from want, it guards
// assertions that index into results
func DemandEquality[T comparable](t *testing.T, got T, want T, tags ...any) {
	t.Helper()

	if got != want {
		t.Fatal(label(tags, "got %v, want %v (%T)", got, want, got))
	}
}
