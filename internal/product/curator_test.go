package product

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/scoring"
	"github.com/lucasnoah/deepcontext/internal/source"
)

func reliabilityScorer(t *testing.T) *scoring.Scorer {
	t.Helper()
	s, err := scoring.New(scoring.Config{
		Signals:    []scoring.Signal{{Name: source.SignalReliability, Weight: 1}},
		Relevance:  scoring.DefaultRelevance(),
		MinQuality: &scoring.MinQuality{Signal: source.SignalReliability, Min: 6},
	})
	require.NoError(t, err)
	return s
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "B2B Sales for Startups", Query("B2B Sales for Startups"))
	assert.Equal(t, "Business Strategy", Query(" Business Strategy "))
	assert.Equal(t, "Distributed Systems book", Query("Distributed Systems"))
}

func TestCurate_VerifiesAndRanks(t *testing.T) {
	sel := &fakeSelector{cands: []source.Candidate{
		{Title: "Sales Fluff", Authors: []string{"Anon"}},
		{Title: "Sales Engineering", Authors: []string{"Jane Doe"}, Description: "Deep practice."},
		{Title: "Cooking", Description: "sales adjacent"},
	}}
	gen := (&routeGen{}).on("Rate the credibility", func(user string) (string, error) {
		switch {
		case strings.Contains(user, "Sales Engineering"):
			return "```json\n{\"score\": 8.5, \"reason\": \"known expert\"}\n```", nil
		case strings.Contains(user, "Cooking"):
			return `{"score": 9, "reason": "great"}`, nil
		default:
			return "I cannot rate this", nil
		}
	})

	c, err := NewCurator(CuratorConfig{
		Selector:  sel,
		Scorer:    reliabilityScorer(t),
		Generator: gen,
		Prompts:   prompt.NewLibrary(""),
	})
	require.NoError(t, err)

	best, err := c.Curate(context.Background(), "Sales")
	require.NoError(t, err)
	assert.Equal(t, "Sales book", sel.query)
	assert.Equal(t, "Sales Engineering", best.Title)
	assert.InDelta(t, 8.5*1.2, best.DerivedScore, 1e-9)
	assert.Equal(t, "known expert", best.Notes["reliability_reason"])
	assert.Equal(t, 3, gen.count("Rate the credibility"))
}

func TestCurate_EmptyDescriptionPlaceholder(t *testing.T) {
	gen := (&routeGen{}).on("Rate the credibility", fixed(`{"score": 7, "reason": "ok"}`))
	c, err := NewCurator(CuratorConfig{
		Selector:  &fakeSelector{},
		Scorer:    reliabilityScorer(t),
		Generator: gen,
		Prompts:   prompt.NewLibrary(""),
	})
	require.NoError(t, err)

	score, _ := c.VerifyReliability(context.Background(), source.Candidate{Title: "T", Description: "  "})
	assert.Equal(t, 7.0, score)
	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0], noDescription)
}

func TestVerifyReliability_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"malformed", "not json", nil},
		{"missing score", `{"reason": "no score"}`, nil},
		{"out of range", `{"score": 42}`, nil},
		{"generator error", "", errors.New("quota")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := (&routeGen{}).on("", func(string) (string, error) { return tt.reply, tt.err })
			c, err := NewCurator(CuratorConfig{
				Selector:           &fakeSelector{},
				Scorer:             reliabilityScorer(t),
				Generator:          gen,
				Prompts:            prompt.NewLibrary(""),
				DefaultReliability: 5,
			})
			require.NoError(t, err)
			score, reason := c.VerifyReliability(context.Background(), source.Candidate{Title: "T"})
			assert.Equal(t, 5.0, score)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestCurate_AllFilteredOut(t *testing.T) {
	gen := (&routeGen{}).on("Rate the credibility", fixed(`{"score": 2}`))
	c, err := NewCurator(CuratorConfig{
		Selector:  &fakeSelector{cands: []source.Candidate{{Title: "Weak"}}},
		Scorer:    reliabilityScorer(t),
		Generator: gen,
		Prompts:   prompt.NewLibrary(""),
	})
	require.NoError(t, err)

	_, err = c.Curate(context.Background(), "weak")
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestCurate_PropagatesAllSourcesFailed(t *testing.T) {
	chainErr := &source.AllSourcesFailedError{Query: "x book"}
	c, err := NewCurator(CuratorConfig{
		Selector: &fakeSelector{err: chainErr},
		Scorer:   reliabilityScorer(t),
	})
	require.NoError(t, err)

	_, err = c.Curate(context.Background(), "x")
	var target *source.AllSourcesFailedError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "x book", target.Query)
}

func TestCurate_WithoutVerification(t *testing.T) {
	s, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	c, err := NewCurator(CuratorConfig{
		Selector: &fakeSelector{cands: []source.Candidate{
			{Title: "Go Concurrency", Signals: map[string]float64{source.SignalCatalogRating: 4}},
			{Title: "Go in Practice", Signals: map[string]float64{source.SignalCatalogRating: 4.5}},
		}},
		Scorer: s,
	})
	require.NoError(t, err)

	best, err := c.Curate(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice", best.Title)
}

func TestNewCurator_Validation(t *testing.T) {
	_, err := NewCurator(CuratorConfig{})
	assert.Error(t, err)
	_, err = NewCurator(CuratorConfig{Selector: &fakeSelector{}, Scorer: reliabilityScorer(t), Generator: &routeGen{}})
	assert.Error(t, err)
}
