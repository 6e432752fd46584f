// Package reflexion drives bounded draft → critique → revise cycles.
package reflexion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Status is the loop state machine position.
type Status string

const (
	StatusDrafting   Status = "DRAFTING"
	StatusCritiquing Status = "CRITIQUING"
	StatusRevising   Status = "REVISING"
	StatusAccepted   Status = "ACCEPTED"
	StatusExhausted  Status = "EXHAUSTED"
)

// Terminal reports whether s ends the loop.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusExhausted
}

// DefaultSentinel marks an approving critique.
const DefaultSentinel = "LGTM"

// ErrInvalidOptions is wrapped by New for unusable options.
var ErrInvalidOptions = errors.New("invalid reflexion options")

// Options bound the loop.
type Options struct {
	MaxIterations    int
	ApprovalSentinel string
}

// DefaultOptions allows three drafts and approves on "LGTM".
func DefaultOptions() Options {
	return Options{MaxIterations: 3, ApprovalSentinel: DefaultSentinel}
}

// Steps are the three collaborators of a loop. Critique always receives
// the original input alongside the draft.
type Steps struct {
	Draft    func(ctx context.Context, input string) (string, error)
	Critique func(ctx context.Context, draft, input string) (string, error)
	Revise   func(ctx context.Context, draft, feedback, input string) (string, error)
}

func (s Steps) validate() error {
	switch {
	case s.Draft == nil:
		return errors.New("draft step is nil")
	case s.Critique == nil:
		return errors.New("critique step is nil")
	case s.Revise == nil:
		return errors.New("revise step is nil")
	}
	return nil
}

// LoopState is the record threaded through a run. Only the controller
// constructs and mutates it.
type LoopState struct {
	Input     string
	Draft     string
	Feedback  string
	Iteration int
	Status    Status
}

// Approved reports whether the loop ended on an approving critique.
func (s *LoopState) Approved() bool { return s.Status == StatusAccepted }

// Controller runs reflexion loops with fixed options.
type Controller struct {
	opts   Options
	logger *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for iteration events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New validates opts and returns a Controller.
func New(opts Options, options ...Option) (*Controller, error) {
	if opts.MaxIterations < 1 {
		return nil, fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidOptions, opts.MaxIterations)
	}
	if opts.ApprovalSentinel == "" {
		return nil, fmt.Errorf("%w: approval sentinel is empty", ErrInvalidOptions)
	}
	c := &Controller{opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// Options returns the controller's options.
func (c *Controller) Options() Options { return c.opts }

// Run drafts once, then alternates critique and revise until the critique
// contains the sentinel or MaxIterations drafts have been critiqued.
// Exhaustion is not an error: the last draft is returned with
// StatusExhausted. Step errors and context cancellation abort the run; the
// returned state then reflects the last completed step.
func (c *Controller) Run(ctx context.Context, input string, steps Steps) (*LoopState, error) {
	if err := steps.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	state := &LoopState{Input: input, Status: StatusDrafting}

	if err := ctx.Err(); err != nil {
		return state, err
	}
	draft, err := steps.Draft(ctx, input)
	if err != nil {
		return state, fmt.Errorf("draft: %w", err)
	}
	state.Draft = draft
	state.Iteration = 1

	for {
		state.Status = StatusCritiquing
		if err := ctx.Err(); err != nil {
			return state, err
		}
		feedback, err := steps.Critique(ctx, state.Draft, input)
		if err != nil {
			return state, fmt.Errorf("critique (iteration %d): %w", state.Iteration, err)
		}
		state.Feedback = feedback

		if strings.Contains(feedback, c.opts.ApprovalSentinel) {
			state.Status = StatusAccepted
			c.logger.Info("reflexion accepted", zap.Int("iteration", state.Iteration))
			return state, nil
		}
		if state.Iteration >= c.opts.MaxIterations {
			state.Status = StatusExhausted
			c.logger.Warn("reflexion exhausted without approval", zap.Int("iteration", state.Iteration))
			return state, nil
		}

		state.Status = StatusRevising
		c.logger.Debug("reflexion revising", zap.Int("iteration", state.Iteration))
		if err := ctx.Err(); err != nil {
			return state, err
		}
		revised, err := steps.Revise(ctx, state.Draft, feedback, input)
		if err != nil {
			return state, fmt.Errorf("revise (iteration %d): %w", state.Iteration, err)
		}
		state.Draft = revised
		state.Iteration++
	}
}
