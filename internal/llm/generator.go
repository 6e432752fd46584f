// Package llm holds the text-generation collaborator used by every component
// that talks to a language model, plus tolerant decoding of the structured
// output such models return.
package llm

import (
	"context"
	"time"
)

// Generator performs one blocking round trip to a language model.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Func adapts an ordinary function to the Generator interface.
type Func func(ctx context.Context, system, user string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// WithTimeout bounds every Generate call on g to d. A non-positive d
// returns g unchanged.
func WithTimeout(g Generator, d time.Duration) Generator {
	if d <= 0 {
		return g
	}
	return Func(func(ctx context.Context, system, user string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return g.Generate(ctx, system, user)
	})
}
