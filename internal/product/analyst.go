package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/llm"
	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/reflexion"
)

// TextType selects the drafting strategy.
type TextType string

const (
	Instructional TextType = "instructional"
	Narrative     TextType = "narrative"
)

// Analysis is the outcome of one analyst run.
type Analysis struct {
	Type  TextType
	State *reflexion.LoopState
}

// Text returns the final draft.
func (a *Analysis) Text() string {
	if a == nil || a.State == nil {
		return ""
	}
	return a.State.Draft
}

// Analyst translates source text into an engineering document through a
// draft, critique and revise loop.
type Analyst struct {
	gen     llm.Generator
	prompts *prompt.Library
	loop    *reflexion.Controller
	logger  *zap.Logger
}

// NewAnalyst returns an Analyst.
func NewAnalyst(gen llm.Generator, prompts *prompt.Library, loop *reflexion.Controller, logger *zap.Logger) (*Analyst, error) {
	if gen == nil || prompts == nil || loop == nil {
		return nil, errors.New("analyst: generator, prompts and loop are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{gen: gen, prompts: prompts, loop: loop, logger: logger.Named("analyst")}, nil
}

func (a *Analyst) ask(ctx context.Context, name string, vars prompt.Vars) (string, error) {
	system, err := a.prompts.Render("analyst-system.md", nil)
	if err != nil {
		return "", err
	}
	user, err := a.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	out, err := a.gen.Generate(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSuffix(name, ".md"), err)
	}
	return out, nil
}

// Classify routes text to a drafting strategy. Any answer that does not
// mention "narrative" counts as instructional.
func (a *Analyst) Classify(ctx context.Context, text string) (TextType, error) {
	out, err := a.ask(ctx, "router.md", prompt.Vars{"text": text})
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(out), string(Narrative)) {
		return Narrative, nil
	}
	return Instructional, nil
}

// Analyze classifies text and runs the reflexion loop over it. An exhausted
// loop is returned as a normal result.
func (a *Analyst) Analyze(ctx context.Context, text string) (*Analysis, error) {
	kind, err := a.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	a.logger.Info("routed", zap.String("type", string(kind)))

	draftTemplate := "draft-instructional.md"
	if kind == Narrative {
		draftTemplate = "draft-narrative.md"
	}
	sentinel := a.loop.Options().ApprovalSentinel

	state, err := a.loop.Run(ctx, text, reflexion.Steps{
		Draft: func(ctx context.Context, input string) (string, error) {
			return a.ask(ctx, draftTemplate, prompt.Vars{"text": input})
		},
		Critique: func(ctx context.Context, draft, input string) (string, error) {
			return a.ask(ctx, "critique.md", prompt.Vars{"text": input, "draft": draft, "sentinel": sentinel})
		},
		Revise: func(ctx context.Context, draft, feedback, input string) (string, error) {
			return a.ask(ctx, "revise.md", prompt.Vars{"feedback": feedback, "draft": draft, "text": input})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	a.logger.Info("analysis finished",
		zap.String("status", string(state.Status)),
		zap.Int("iterations", state.Iteration),
	)
	return &Analysis{Type: kind, State: state}, nil
}
