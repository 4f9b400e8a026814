package main

import (
	"io/ioutil"
	"strconv"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"

	"gopkg.in/yaml.v2"
)

// Sweep generates readings from From to To inclusive in Step increments,
// a sweep that runs downward uses a negative step
type Sweep struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
	Step int `yaml:"step"`
}

// Scenario describes the telemetry the simulator plays.  Explicit lines are
// sent as written, which allows malformed and out of range data to be
// included, followed by any sweep
type Scenario struct {
	Interval time.Duration `yaml:"interval"`
	Loop     bool          `yaml:"loop"`
	Text     []string      `yaml:"lines"`
	Sweep    *Sweep        `yaml:"sweep"`
}

func parseScenario(data []byte) (scenario *Scenario, err errors.Error) {
	scenario = &Scenario{
		Interval: 100 * time.Millisecond,
	}
	if errGo := yaml.Unmarshal(data, scenario); errGo != nil {
		return nil, errors.Wrap(errGo).With("stack", stack.Trace().TrimRuntime())
	}
	if scenario.Interval <= 0 {
		return nil, errors.New("scenario interval must be positive").With("interval", scenario.Interval.String()).With("stack", stack.Trace().TrimRuntime())
	}
	if scenario.Sweep != nil && scenario.Sweep.Step == 0 {
		return nil, errors.New("scenario sweep step must not be zero").With("stack", stack.Trace().TrimRuntime())
	}
	return scenario, nil
}

func loadScenario(fn string) (scenario *Scenario, err errors.Error) {
	data, errGo := ioutil.ReadFile(fn)
	if errGo != nil {
		return nil, errors.Wrap(errGo).With("file", fn).With("stack", stack.Trace().TrimRuntime())
	}
	if scenario, err = parseScenario(data); err != nil {
		return nil, err.With("file", fn)
	}
	return scenario, nil
}

// Lines expands the scenario into the lines sent during one pass
func (scenario *Scenario) Lines() (lines []string) {
	lines = append([]string{}, scenario.Text...)

	sweep := scenario.Sweep
	if sweep == nil || sweep.Step == 0 {
		return lines
	}
	if sweep.Step > 0 {
		for v := sweep.From; v <= sweep.To; v += sweep.Step {
			lines = append(lines, strconv.Itoa(v))
		}
	} else {
		for v := sweep.From; v >= sweep.To; v += sweep.Step {
			lines = append(lines, strconv.Itoa(v))
		}
	}
	return lines
}
