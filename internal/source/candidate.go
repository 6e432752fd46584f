// Package source turns external catalog and search providers into canonical
// Candidate records and chains them with first-success-wins fallback.
package source

import (
	"context"
	"errors"
	"strings"
)

// Signal names written by the adapters and enrichers in this package.
const (
	SignalCatalogRating       = "catalog_rating"
	SignalCatalogRatingsCount = "catalog_ratings_count"
	SignalSearchScore         = "search_score"
	SignalHNPoints            = "hn_points"
	SignalHNComments          = "hn_comments"
	SignalReliability         = "reliability"
)

// Candidate is a normalized result from any provider. DerivedScore is
// written only by the scorer.
type Candidate struct {
	Title         string             `json:"title"`
	Authors       []string           `json:"authors"`
	Description   string             `json:"description"`
	Publisher     string             `json:"publisher,omitempty"`
	PublishedDate string             `json:"published_date,omitempty"`
	URL           string             `json:"url,omitempty"`
	Source        string             `json:"source"`
	Signals       map[string]float64 `json:"signals,omitempty"`
	DerivedScore  float64            `json:"derived_score"`
	Notes         map[string]string  `json:"notes,omitempty"`
}

// ErrMissingTitle is returned by Validate for candidates without a title.
var ErrMissingTitle = errors.New("candidate has no title")

// Validate reports whether the candidate is usable downstream.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}

// Signal returns the named signal, or 0 when absent.
func (c Candidate) Signal(name string) float64 {
	return c.Signals[name]
}

// WithSignal returns a copy of c with the signal set. The receiver's map is
// never mutated.
func (c Candidate) WithSignal(name string, value float64) Candidate {
	signals := make(map[string]float64, len(c.Signals)+1)
	for k, v := range c.Signals {
		signals[k] = v
	}
	signals[name] = value
	c.Signals = signals
	return c
}

// WithNote returns a copy of c with a free-text annotation (e.g. the reason
// behind a reliability score).
func (c Candidate) WithNote(key, value string) Candidate {
	notes := make(map[string]string, len(c.Notes)+1)
	for k, v := range c.Notes {
		notes[k] = v
	}
	notes[key] = value
	c.Notes = notes
	return c
}

// Adapter searches one external provider and normalizes its results.
// Implementations return an empty slice, never an error, when the provider
// has no results; errors are reserved for transport and protocol failures.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// keepValid drops candidates that fail validation.
func keepValid(in []Candidate) []Candidate {
	out := in[:0]
	for _, c := range in {
		if c.Validate() == nil {
			out = append(out, c)
		}
	}
	return out
}
