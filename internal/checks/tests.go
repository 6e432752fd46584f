package checks

import (
	"context"
	"fmt"
)

// RunResult is the outcome of one test-suite execution.
type RunResult struct {
	Passed  bool
	Summary string
	Output  string
}

// Report converts r into a gate report.
func (r *RunResult) Report(gate string) Report {
	msg := r.Summary
	if msg == "" {
		if r.Passed {
			msg = "tests passed"
		} else {
			msg = "tests failed"
		}
	}
	return Report{Gate: gate, Class: ClassQuality, Passed: r.Passed, Message: msg, Output: r.Output}
}

// TestRunner runs a fixed test command in a working tree.
type TestRunner interface {
	RunTests(ctx context.Context, dir string) (*RunResult, error)
}

// CommandTests is a TestRunner backed by a configured check.
type CommandTests struct {
	runner *Runner
	cfg    CheckConfig
}

// NewCommandTests binds a check configuration to a runner.
func NewCommandTests(runner *Runner, cfg CheckConfig) *CommandTests {
	if cfg.Name == "" {
		cfg.Name = "tests"
	}
	return &CommandTests{runner: runner, cfg: cfg}
}

// RunTests executes the check in dir.
func (t *CommandTests) RunTests(ctx context.Context, dir string) (*RunResult, error) {
	res, err := t.runner.Run(ctx, dir, t.cfg)
	if err != nil {
		return nil, fmt.Errorf("run tests: %w", err)
	}
	return &RunResult{Passed: res.Passed, Summary: res.Summary, Output: res.Output()}, nil
}

// SuiteGate adapts a TestRunner into a quality gate. dir picks the working
// tree for a subject.
func SuiteGate[S any](name string, runner TestRunner, dir func(S) string) Gate[S] {
	return Gate[S]{
		Name:  name,
		Class: ClassQuality,
		Check: func(ctx context.Context, subject S) (Report, error) {
			res, err := runner.RunTests(ctx, dir(subject))
			if err != nil {
				return Report{}, err
			}
			return res.Report(name), nil
		},
	}
}
