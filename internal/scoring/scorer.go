// Package scoring ranks candidates by a weighted, clamp-normalized blend of
// their signals multiplied by a query relevance factor.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lucasnoah/deepcontext/internal/source"
)

// Signal describes how one named signal contributes to the score.
// Values are clamped to [0, Cap] (Cap 0 disables the upper bound) and then
// divided by Divisor (0 means 1).
type Signal struct {
	Name    string  `yaml:"name"`
	Weight  float64 `yaml:"weight"`
	Cap     float64 `yaml:"cap,omitempty"`
	Divisor float64 `yaml:"divisor,omitempty"`
}

// Relevance multipliers applied after the weighted sum.
type Relevance struct {
	TitleMatch       float64 `yaml:"title_match"`
	DescriptionMatch float64 `yaml:"description_match"`
	NoMatch          float64 `yaml:"no_match"`
}

// MinQuality drops candidates whose signal is below Min before scoring.
type MinQuality struct {
	Signal string  `yaml:"signal"`
	Min    float64 `yaml:"min"`
}

// Config holds every scoring constant.
type Config struct {
	Signals    []Signal    `yaml:"signals"`
	Relevance  Relevance   `yaml:"relevance"`
	MinQuality *MinQuality `yaml:"min_quality,omitempty"`
}

// DefaultConfig weights discussion volume over catalog rating.
func DefaultConfig() Config {
	return Config{
		Signals: []Signal{
			{Name: source.SignalHNPoints, Weight: 0.7, Cap: 500, Divisor: 100},
			{Name: source.SignalCatalogRating, Weight: 0.3},
		},
		Relevance: DefaultRelevance(),
	}
}

// DefaultRelevance rewards title hits and heavily penalizes misses.
func DefaultRelevance() Relevance {
	return Relevance{TitleMatch: 1.2, DescriptionMatch: 0.8, NoMatch: 0.1}
}

// ErrInvalidConfig is wrapped by New for unusable configurations.
var ErrInvalidConfig = errors.New("invalid scoring config")

// Scorer ranks candidates. It is stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New validates cfg and returns a Scorer.
func New(cfg Config) (*Scorer, error) {
	if len(cfg.Signals) == 0 {
		return nil, fmt.Errorf("%w: no signals", ErrInvalidConfig)
	}
	seen := map[string]bool{}
	for _, s := range cfg.Signals {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: signal without name", ErrInvalidConfig)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate signal %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
		if s.Weight < 0 || s.Cap < 0 || s.Divisor < 0 {
			return nil, fmt.Errorf("%w: signal %q has a negative parameter", ErrInvalidConfig, s.Name)
		}
	}
	r := cfg.Relevance
	if r.TitleMatch < 0 || r.DescriptionMatch < 0 || r.NoMatch < 0 {
		return nil, fmt.Errorf("%w: negative relevance multiplier", ErrInvalidConfig)
	}
	if cfg.MinQuality != nil && cfg.MinQuality.Signal == "" {
		return nil, fmt.Errorf("%w: min_quality without signal", ErrInvalidConfig)
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the scorer configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Score computes the derived score of c for query.
func (s *Scorer) Score(query string, c source.Candidate) float64 {
	var sum float64
	for _, sig := range s.cfg.Signals {
		sum += sig.Weight * normalize(c.Signal(sig.Name), sig.Cap, sig.Divisor)
	}
	return sum * s.relevance(query, c)
}

func normalize(v, cap, divisor float64) float64 {
	if v < 0 {
		v = 0
	}
	if cap > 0 && v > cap {
		v = cap
	}
	if divisor > 0 {
		v /= divisor
	}
	return v
}

func (s *Scorer) relevance(query string, c source.Candidate) float64 {
	words := wordSet(query)
	switch {
	case intersects(words, c.Title):
		return s.cfg.Relevance.TitleMatch
	case intersects(words, c.Description):
		return s.cfg.Relevance.DescriptionMatch
	default:
		return s.cfg.Relevance.NoMatch
	}
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func intersects(words map[string]struct{}, text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

// Rank filters by MinQuality, scores each survivor and returns copies sorted
// by DerivedScore descending. Ties keep input order.
func (s *Scorer) Rank(query string, candidates []source.Candidate) []source.Candidate {
	out := make([]source.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if mq := s.cfg.MinQuality; mq != nil && c.Signal(mq.Signal) < mq.Min {
			continue
		}
		c.DerivedScore = s.Score(query, c)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DerivedScore > out[j].DerivedScore
	})
	return out
}

// Top returns the best candidate, or nil when none survive.
func (s *Scorer) Top(query string, candidates []source.Candidate) *source.Candidate {
	ranked := s.Rank(query, candidates)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}
