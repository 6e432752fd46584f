package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/history"
	"github.com/lucasnoah/deepcontext/internal/llm"
	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/reflexion"
)

// HistoryTail is how much review history the optimizer reads.
const HistoryTail = 5000

const noHistory = "No history available."

// ErrEmptyPrompt is returned when optimization produced nothing to write.
var ErrEmptyPrompt = errors.New("optimizer produced an empty prompt")

// OptimizeResult describes one optimization.
type OptimizeResult struct {
	Name   string
	Prompt string
	Path   string
	State  *reflexion.LoopState
}

// Optimizer rewrites prompt templates from review-history evidence
// (optimization by prompting). A judge critique drives the revisions.
type Optimizer struct {
	gen     llm.Generator
	prompts *prompt.Library
	history *history.Log
	loop    *reflexion.Controller
	logger  *zap.Logger
}

// NewOptimizer returns an Optimizer. The library must have an override
// directory; that is where improved prompts are written.
func NewOptimizer(gen llm.Generator, prompts *prompt.Library, hist *history.Log, loop *reflexion.Controller, logger *zap.Logger) (*Optimizer, error) {
	if gen == nil || prompts == nil || hist == nil || loop == nil {
		return nil, errors.New("optimizer: generator, prompts, history and loop are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{gen: gen, prompts: prompts, history: hist, loop: loop, logger: logger.Named("optimizer")}, nil
}

func (o *Optimizer) ask(ctx context.Context, name string, vars prompt.Vars) (string, error) {
	system, err := o.prompts.Render("optimizer-system.md", nil)
	if err != nil {
		return "", err
	}
	user, err := o.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	return o.gen.Generate(ctx, system, user)
}

// Optimize improves the named template and writes it as an override. An
// exhausted judge loop still writes its last candidate; an empty candidate
// writes nothing and returns ErrEmptyPrompt.
func (o *Optimizer) Optimize(ctx context.Context, name string) (*OptimizeResult, error) {
	if !o.prompts.Known(name) {
		return nil, fmt.Errorf("optimizer: unknown prompt %q", name)
	}
	current, err := o.prompts.Source(name)
	if err != nil {
		return nil, err
	}
	hist, err := o.history.Tail(HistoryTail)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(hist) == "" {
		hist = noHistory
	}
	o.logger.Info("optimizing", zap.String("prompt", name), zap.Int("history_bytes", len(hist)))

	sentinel := o.loop.Options().ApprovalSentinel
	state, err := o.loop.Run(ctx, current, reflexion.Steps{
		Draft: func(ctx context.Context, current string) (string, error) {
			return o.ask(ctx, "optimizer.md", prompt.Vars{"target": name, "current": current, "history": hist})
		},
		Critique: func(ctx context.Context, candidate, current string) (string, error) {
			return o.ask(ctx, "optimizer-judge.md", prompt.Vars{
				"current": current, "candidate": candidate, "history": hist, "sentinel": sentinel,
			})
		},
		Revise: func(ctx context.Context, candidate, feedback, current string) (string, error) {
			return o.ask(ctx, "optimizer-revise.md", prompt.Vars{
				"feedback": feedback, "candidate": candidate, "current": current,
			})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("optimizing %s: %w", name, err)
	}

	res := &OptimizeResult{Name: name, State: state, Prompt: llm.StripFences(state.Draft)}
	if strings.TrimSpace(res.Prompt) == "" {
		o.logger.Error("optimization produced no prompt", zap.String("prompt", name))
		return res, ErrEmptyPrompt
	}
	if err := o.prompts.WriteOverride(name, res.Prompt+"\n"); err != nil {
		return res, err
	}
	res.Path = o.prompts.OverridePath(name)
	o.logger.Info("prompt override written",
		zap.String("prompt", name),
		zap.String("path", res.Path),
		zap.String("judge", string(state.Status)),
	)
	return res, nil
}
