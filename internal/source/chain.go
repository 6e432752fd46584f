package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// AdapterFailure records why one adapter did not produce candidates.
// Err is nil when the adapter succeeded with an empty result.
type AdapterFailure struct {
	Adapter string
	Err     error
}

// AllSourcesFailedError is returned when every adapter in a chain failed or
// returned nothing for a query.
type AllSourcesFailedError struct {
	Query    string
	Failures []AdapterFailure
}

func (e *AllSourcesFailedError) Error() string {
	var parts []string
	for _, f := range e.Failures {
		if f.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", f.Adapter, f.Err))
		} else {
			parts = append(parts, fmt.Sprintf("%s: no results", f.Adapter))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("all sources failed for query %q: no adapters configured", e.Query)
	}
	return fmt.Sprintf("all sources failed for query %q (%s)", e.Query, strings.Join(parts, "; "))
}

// Unwrap exposes the adapter errors to errors.Is / errors.As.
func (e *AllSourcesFailedError) Unwrap() []error {
	var errs []error
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Chain tries adapters in declared order and returns the first non-empty
// result. Adapters are never invoked concurrently.
type Chain struct {
	adapters []Adapter
	logger   *zap.Logger
}

// NewChain creates a chain over the given adapters.
func NewChain(logger *zap.Logger, adapters ...Adapter) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{adapters: adapters, logger: logger}
}

// Adapters returns the adapter names in chain order.
func (c *Chain) Adapters() []string {
	names := make([]string, len(c.adapters))
	for i, a := range c.adapters {
		names[i] = a.Name()
	}
	return names
}

// Select runs the chain for query. A failing adapter is logged and skipped;
// retry policy, if any, belongs to the adapter.
func (c *Chain) Select(ctx context.Context, query string) ([]Candidate, error) {
	exhausted := &AllSourcesFailedError{Query: query}

	for _, a := range c.adapters {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("select %q: %w", query, err)
		}

		results, err := a.Search(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil, fmt.Errorf("select %q: %w", query, err)
			}
			c.logger.Warn("source failed, falling back",
				zap.String("adapter", a.Name()),
				zap.String("query", query),
				zap.Error(err))
			exhausted.Failures = append(exhausted.Failures, AdapterFailure{Adapter: a.Name(), Err: err})
			continue
		}

		results = keepValid(results)
		if len(results) == 0 {
			c.logger.Info("source returned no results",
				zap.String("adapter", a.Name()),
				zap.String("query", query))
			exhausted.Failures = append(exhausted.Failures, AdapterFailure{Adapter: a.Name()})
			continue
		}

		c.logger.Info("source selected",
			zap.String("adapter", a.Name()),
			zap.String("query", query),
			zap.Int("candidates", len(results)))
		return results, nil
	}

	return nil, exhausted
}
