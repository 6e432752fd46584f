// Package product is the content assembly line: it picks a book for a
// topic, gathers outside discussion of it, translates it into engineering
// terms and scripts a two-host episode from the result.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/llm"
	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/scoring"
	"github.com/lucasnoah/deepcontext/internal/source"
)

// ErrNoCandidate is returned when every candidate was filtered out.
var ErrNoCandidate = errors.New("no candidate survived selection")

const noDescription = "No description available. Please judge based on title, author and publisher."

// Selector yields candidates for a query (normally a *source.Chain).
type Selector interface {
	Select(ctx context.Context, query string) ([]source.Candidate, error)
}

// Enricher adds signals to candidates without failing (normally
// *source.HackerNews).
type Enricher interface {
	Enrich(ctx context.Context, candidates []source.Candidate) []source.Candidate
}

// CuratorConfig wires a Curator.
type CuratorConfig struct {
	Selector  Selector
	Enricher  Enricher // optional
	Scorer    *scoring.Scorer
	Generator llm.Generator // nil disables reliability verification
	Prompts   *prompt.Library
	// DefaultReliability is used when the model's verdict cannot be parsed.
	DefaultReliability float64
	Logger             *zap.Logger
}

// Curator selects the single best book for a topic.
type Curator struct {
	cfg    CuratorConfig
	logger *zap.Logger
}

// NewCurator validates cfg and returns a Curator.
func NewCurator(cfg CuratorConfig) (*Curator, error) {
	if cfg.Selector == nil {
		return nil, errors.New("curator: selector is required")
	}
	if cfg.Scorer == nil {
		return nil, errors.New("curator: scorer is required")
	}
	if cfg.Generator != nil && cfg.Prompts == nil {
		return nil, errors.New("curator: prompts are required for reliability verification")
	}
	if cfg.DefaultReliability == 0 {
		cfg.DefaultReliability = 5.0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Curator{cfg: cfg, logger: logger.Named("curator")}, nil
}

// Query rewrites a topic into a catalog query. Business topics already read
// like book searches; anything else gets a "book" suffix.
func Query(topic string) string {
	t := strings.TrimSpace(topic)
	lower := strings.ToLower(t)
	if strings.Contains(lower, "startup") || strings.Contains(lower, "business") {
		return t
	}
	return t + " book"
}

// Curate runs the full selection: chain, enrichment, verification, ranking.
// An *source.AllSourcesFailedError from the chain is returned unchanged.
func (c *Curator) Curate(ctx context.Context, topic string) (*source.Candidate, error) {
	query := Query(topic)
	c.logger.Info("searching", zap.String("topic", topic), zap.String("query", query))

	candidates, err := c.cfg.Selector.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	c.logger.Info("candidates found", zap.Int("count", len(candidates)))

	if c.cfg.Enricher != nil {
		candidates = c.cfg.Enricher.Enrich(ctx, candidates)
	}

	if c.cfg.Generator != nil {
		for i, cand := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			score, reason := c.VerifyReliability(ctx, cand)
			candidates[i] = cand.WithSignal(source.SignalReliability, score).WithNote("reliability_reason", reason)
		}
	}

	best := c.cfg.Scorer.Top(topic, candidates)
	if best == nil {
		return nil, fmt.Errorf("curating %q: %w", topic, ErrNoCandidate)
	}
	c.logger.Info("selected",
		zap.String("title", best.Title),
		zap.Float64("score", best.DerivedScore),
		zap.String("source", best.Source),
	)
	return best, nil
}

type reliabilityVerdict struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// VerifyReliability asks the generator for a 0-10 credibility score. Any
// failure, including an unparseable or out-of-range answer, yields the
// configured default with a reason describing what went wrong.
func (c *Curator) VerifyReliability(ctx context.Context, cand source.Candidate) (float64, string) {
	def := c.cfg.DefaultReliability

	desc := strings.TrimSpace(cand.Description)
	if desc == "" {
		desc = noDescription
	}
	user, err := c.cfg.Prompts.Render("reliability.md", prompt.Vars{
		"title":       cand.Title,
		"authors":     strings.Join(cand.Authors, ", "),
		"description": desc,
	})
	if err != nil {
		return def, "prompt error: " + err.Error()
	}
	system, err := c.cfg.Prompts.Render("curator-system.md", nil)
	if err != nil {
		return def, "prompt error: " + err.Error()
	}

	raw, err := c.cfg.Generator.Generate(ctx, system, user)
	if err != nil {
		c.logger.Warn("reliability check failed", zap.String("title", cand.Title), zap.Error(err))
		return def, "verification failed"
	}

	var v reliabilityVerdict
	if err := llm.DecodeJSON(raw, &v); err != nil || v.Score == nil {
		c.logger.Warn("unparseable reliability verdict", zap.String("title", cand.Title))
		return def, "unparseable verdict"
	}
	if *v.Score < 0 || *v.Score > 10 {
		return def, fmt.Sprintf("score %v out of range", *v.Score)
	}
	c.logger.Debug("reliability", zap.String("title", cand.Title), zap.Float64("score", *v.Score))
	return *v.Score, v.Reason
}
