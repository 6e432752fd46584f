package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Class categorizes a gate. Policy gates guard preconditions and may block
// the rest of the pipeline; quality gates always report.
type Class string

const (
	ClassPolicy  Class = "policy"
	ClassQuality Class = "quality"
)

// Report is the immutable outcome of one gate.
type Report struct {
	Gate    string `json:"gate"`
	Class   Class  `json:"class"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Output  string `json:"output,omitempty"`
}

// Gate is one named check over a subject.
type Gate[S any] struct {
	Name  string
	Class Class
	Check func(ctx context.Context, subject S) (Report, error)
}

// PipelineConfig assembles a Pipeline.
type PipelineConfig[S any] struct {
	Gates []Gate[S]
	// Blocking makes a failing policy gate skip every later gate.
	Blocking bool
	// Commit runs once when every gate passed. Optional.
	Commit func(ctx context.Context, subject S) error
	Logger *zap.Logger
}

// Pipeline runs gates in declared order and commits on full success.
type Pipeline[S any] struct {
	gates    []Gate[S]
	blocking bool
	commit   func(ctx context.Context, subject S) error
	logger   *zap.Logger
}

// NewPipeline validates cfg.
func NewPipeline[S any](cfg PipelineConfig[S]) (*Pipeline[S], error) {
	if len(cfg.Gates) == 0 {
		return nil, errors.New("pipeline needs at least one gate")
	}
	seen := map[string]bool{}
	for i, g := range cfg.Gates {
		if g.Name == "" {
			return nil, fmt.Errorf("gate %d has no name", i)
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("duplicate gate %q", g.Name)
		}
		seen[g.Name] = true
		if g.Class != ClassPolicy && g.Class != ClassQuality {
			return nil, fmt.Errorf("gate %q: unknown class %q", g.Name, g.Class)
		}
		if g.Check == nil {
			return nil, fmt.Errorf("gate %q has no check", g.Name)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline[S]{
		gates:    cfg.Gates,
		blocking: cfg.Blocking,
		commit:   cfg.Commit,
		logger:   logger,
	}, nil
}

// Evaluation is the result of one Evaluate call.
type Evaluation struct {
	Reports   []Report
	Skipped   []string
	Proceed   bool
	Committed bool
	CommitErr error
}

// Failures returns the failing reports in gate order.
func (e *Evaluation) Failures() []Report {
	var out []Report
	for _, r := range e.Reports {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// FailureReport renders every failing gate into one markdown document.
// It returns "" when nothing failed.
func (e *Evaluation) FailureReport() string {
	failures := e.Failures()
	if len(failures) == 0 && e.CommitErr == nil {
		return ""
	}

	var b strings.Builder
	if len(failures) > 0 {
		fmt.Fprintf(&b, "### ❌ %d of %d gates failed\n\n", len(failures), len(e.Reports)+len(e.Skipped))
	}
	for _, r := range failures {
		fmt.Fprintf(&b, "#### %s (%s)\n%s\n", r.Gate, r.Class, r.Message)
		if r.Output != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", strings.TrimRight(r.Output, "\n"))
		}
		b.WriteString("\n")
	}
	if len(e.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped: %s\n\n", strings.Join(e.Skipped, ", "))
	}
	if e.CommitErr != nil {
		fmt.Fprintf(&b, "### ⚠️ Commit failed\n%v\n", e.CommitErr)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Evaluate runs the gates against subject. Gate errors become failed
// reports. When every gate passed the commit runs exactly once and is never
// retried; its error is recorded on the Evaluation.
func (p *Pipeline[S]) Evaluate(ctx context.Context, subject S) *Evaluation {
	eval := &Evaluation{}

	for i, g := range p.gates {
		if err := ctx.Err(); err != nil {
			eval.Reports = append(eval.Reports, Report{
				Gate: g.Name, Class: g.Class, Message: fmt.Sprintf("not run: %v", err),
			})
			eval.Skipped = append(eval.Skipped, names(p.gates[i+1:])...)
			break
		}

		report, err := g.Check(ctx, subject)
		if err != nil {
			report = Report{Passed: false, Message: fmt.Sprintf("gate error: %v", err)}
		}
		report.Gate = g.Name
		report.Class = g.Class
		eval.Reports = append(eval.Reports, report)

		p.logger.Info("gate evaluated",
			zap.String("gate", g.Name),
			zap.String("class", string(g.Class)),
			zap.Bool("passed", report.Passed))

		if !report.Passed && g.Class == ClassPolicy && p.blocking {
			eval.Skipped = append(eval.Skipped, names(p.gates[i+1:])...)
			if len(eval.Skipped) > 0 {
				p.logger.Info("policy gate failed, skipping remaining gates",
					zap.String("gate", g.Name),
					zap.Strings("skipped", eval.Skipped))
			}
			break
		}
	}

	eval.Proceed = len(eval.Skipped) == 0 && len(eval.Reports) == len(p.gates)
	for _, r := range eval.Reports {
		if !r.Passed {
			eval.Proceed = false
		}
	}

	if eval.Proceed && p.commit != nil {
		if err := p.commit(ctx, subject); err != nil {
			eval.CommitErr = err
			p.logger.Error("commit failed", zap.Error(err))
		} else {
			eval.Committed = true
		}
	}
	return eval
}

func names[S any](gates []Gate[S]) []string {
	out := make([]string, len(gates))
	for i, g := range gates {
		out[i] = g.Name
	}
	return out
}
