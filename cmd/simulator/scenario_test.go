package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TeamNorCal/wavelamp/test"
)

func TestParseScenario(t *testing.T) {
	scenario, err := parseScenario([]byte(`
interval: 20ms
loop: true
lines:
  - "300"
  - "bad"
sweep:
  from: 1000
  to: 1023
  step: 10
`))
	test.DemandEquality(t, err == nil, true)
	test.ExpectEquality(t, scenario.Interval, 20*time.Millisecond)
	test.ExpectEquality(t, scenario.Loop, true)
	test.ExpectEquality(t, strings.Join(scenario.Lines(), ","), "300,bad,1000,1010,1020")
}

func TestParseScenarioDescending(t *testing.T) {
	scenario, err := parseScenario([]byte("sweep: {from: 20, to: 0, step: -10}\n"))
	test.DemandEquality(t, err == nil, true)
	test.ExpectEquality(t, scenario.Interval, 100*time.Millisecond)
	test.ExpectEquality(t, strings.Join(scenario.Lines(), ","), "20,10,0")
}

func TestParseScenarioInvalid(t *testing.T) {
	_, err := parseScenario([]byte("interval: -5ms\n"))
	test.ExpectFailure(t, err)

	_, err = parseScenario([]byte("sweep: {from: 0, to: 10, step: 0}\n"))
	test.ExpectFailure(t, err)

	_, err = parseScenario([]byte("lines: [unterminated\n"))
	test.ExpectFailure(t, err)
}

func TestShippedScenarios(t *testing.T) {
	files, errGo := filepath.Glob("scenarios/*.yaml")
	test.DemandEquality(t, errGo == nil, true)
	test.ExpectSuccess(t, len(files) != 0)

	for _, fn := range files {
		scenario, err := loadScenario(fn)
		if test.ExpectSuccess(t, err, fn) {
			test.ExpectSuccess(t, len(scenario.Lines()) != 0, fn)
		}
	}
}

func TestPlayWritesLines(t *testing.T) {
	scenario := &Scenario{
		Interval: time.Millisecond,
		Text:     []string{"300", "bad", "1023"},
	}

	buf := &bytes.Buffer{}
	err := play(buf, scenario, nil)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, buf.String(), "300\nbad\n1023\n")
}
