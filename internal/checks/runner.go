package checks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Result holds the structured output of a check run.
type Result struct {
	CheckName  string `json:"check_name"`
	Passed     bool   `json:"passed"`
	AutoFixed  bool   `json:"auto_fixed"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int    `json:"duration_ms"`
	Summary    string `json:"summary"`
	Findings   string `json:"findings"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// Output returns stdout and stderr joined, tail-truncated for reports.
func (r *Result) Output() string {
	return tail(joinOutput(r.Stdout, r.Stderr), maxOutputLen)
}

// CheckConfig mirrors config.Check with the fields the runner needs.
type CheckConfig struct {
	Name       string
	Command    string
	Parser     string
	Timeout    time.Duration
	AutoFix    bool
	FixCommand string
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = 2 * time.Second

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes checks and parses their output.
type Runner struct {
	cmd     CommandRunner
	parsers map[string]Parser
}

// NewRunner creates a Runner with the given command runner.
func NewRunner(cmd CommandRunner) *Runner {
	r := &Runner{
		cmd:     cmd,
		parsers: make(map[string]Parser),
	}
	r.parsers["gotest"] = &GoTestParser{}
	r.parsers["pytest"] = &PytestParser{}
	r.parsers["generic"] = &GenericParser{}
	return r
}

// Parsers returns the registered parser names, sorted.
func (r *Runner) Parsers() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasParser reports whether name is a registered parser.
func (r *Runner) HasParser(name string) bool {
	_, ok := r.parsers[name]
	return ok
}

// Run executes a single check in the given directory.
func (r *Runner) Run(ctx context.Context, dir string, cfg CheckConfig) (*Result, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	result, err := r.runOnce(ctx, dir, cfg, timeout)
	if err != nil {
		return nil, err
	}

	// Auto-fix: if check failed, auto_fix enabled, and fix_command set, run fix then re-check
	if !result.Passed && !result.TimedOut && cfg.AutoFix && cfg.FixCommand != "" {
		fixCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		// fix commands often exit non-zero; only the re-check counts
		_, _, _, _ = r.cmd.Run(fixCtx, dir, cfg.FixCommand)

		recheck, err := r.runOnce(ctx, dir, cfg, timeout)
		if err != nil {
			return nil, fmt.Errorf("re-run after fix: %w", err)
		}
		recheck.AutoFixed = true
		return recheck, nil
	}

	return result, nil
}

// runOnce executes a check command once and parses the output.
func (r *Runner) runOnce(parent context.Context, dir string, cfg CheckConfig, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(ctx, dir, cfg.Command)
	durationMs := int(time.Since(start).Milliseconds())

	if err != nil {
		// own deadline → timeout result; caller cancellation → error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return &Result{
				CheckName:  cfg.Name,
				Passed:     false,
				TimedOut:   true,
				ExitCode:   -1,
				DurationMs: durationMs,
				Summary:    fmt.Sprintf("timeout after %s", timeout),
				Stdout:     stdout,
				Stderr:     stderr,
			}, nil
		}
		return nil, fmt.Errorf("run check %q: %w", cfg.Name, err)
	}

	parser, ok := r.parsers[cfg.Parser]
	if !ok {
		parser = r.parsers["generic"]
	}

	parsed := parser.Parse(stdout, stderr, exitCode)

	findingsJSON, _ := json.Marshal(parsed.Findings)

	return &Result{
		CheckName:  cfg.Name,
		Passed:     exitCode == 0 && parsed.Passed,
		ExitCode:   exitCode,
		DurationMs: durationMs,
		Summary:    parsed.Summary,
		Findings:   string(findingsJSON),
		Stdout:     stdout,
		Stderr:     stderr,
	}, nil
}
