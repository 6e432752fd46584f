package scoring

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/deepcontext/internal/source"
)

func cand(title, desc string, signals map[string]float64) source.Candidate {
	return source.Candidate{Title: title, Description: desc, Signals: signals}
}

func titles(cs []source.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

func mustNew(t *testing.T, cfg Config) *Scorer {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestScore_QualityCatalogBlend(t *testing.T) {
	s := mustNew(t, Config{
		Signals: []Signal{
			{Name: "quality", Weight: 0.7},
			{Name: "catalog", Weight: 0.3},
		},
		Relevance: DefaultRelevance(),
	})

	a := cand("Stoicism Today", "", map[string]float64{"quality": 9, "catalog": 4})
	b := cand("Unrelated", "all about stoicism", map[string]float64{"quality": 10, "catalog": 5})
	c := cand("Cooking", "pasta", map[string]float64{"quality": 10, "catalog": 5})

	ranked := s.Rank("stoicism", []source.Candidate{c, b, a})
	if diff := cmp.Diff([]string{"Stoicism Today", "Unrelated", "Cooking"}, titles(ranked)); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, (9*0.7+4*0.3)*1.2, ranked[0].DerivedScore, 1e-9)
	assert.InDelta(t, (10*0.7+5*0.3)*0.8, ranked[1].DerivedScore, 1e-9)
	assert.InDelta(t, (10*0.7+5*0.3)*0.1, ranked[2].DerivedScore, 1e-9)
}

func TestScore_ClampAndDivide(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	c := cand("Go Book", "", map[string]float64{
		source.SignalHNPoints:      2000,
		source.SignalCatalogRating: 4,
	})
	want := (500.0/100*0.7 + 4*0.3) * 1.2
	assert.InDelta(t, want, s.Score("go", c), 1e-9)

	neg := cand("Go Book", "", map[string]float64{source.SignalHNPoints: -10})
	assert.Equal(t, 0.0, s.Score("go", neg))
}

func TestRank_MonotoneInSignals(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	low := cand("Go", "", map[string]float64{source.SignalHNPoints: 100, source.SignalCatalogRating: 3})
	high := cand("Go", "", map[string]float64{source.SignalHNPoints: 200, source.SignalCatalogRating: 3})
	assert.Greater(t, s.Score("go", high), s.Score("go", low))
}

func TestRank_NoMatchIsPenaltyNotExclusion(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	ranked := s.Rank("rust", []source.Candidate{
		cand("Cooking", "pasta", map[string]float64{source.SignalCatalogRating: 5}),
	})
	require.Len(t, ranked, 1)
	assert.InDelta(t, 5*0.3*0.1, ranked[0].DerivedScore, 1e-9)
}

func TestRank_MinQualityAppliedBeforeScoring(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQuality = &MinQuality{Signal: source.SignalReliability, Min: 6}
	s := mustNew(t, cfg)

	ranked := s.Rank("go", []source.Candidate{
		cand("Go A", "", map[string]float64{source.SignalReliability: 5.9, source.SignalCatalogRating: 5}),
		cand("Go B", "", map[string]float64{source.SignalReliability: 6, source.SignalCatalogRating: 1}),
		cand("Go C", "", nil),
	})
	assert.Equal(t, []string{"Go B"}, titles(ranked))
}

func TestRank_StableTies(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	sig := map[string]float64{source.SignalCatalogRating: 4}
	in := []source.Candidate{cand("go 1", "", sig), cand("go 2", "", sig), cand("go 3", "", sig)}
	assert.Equal(t, []string{"go 1", "go 2", "go 3"}, titles(s.Rank("go", in)))
}

func TestRank_ReturnsCopies(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	in := []source.Candidate{cand("Go", "", map[string]float64{source.SignalCatalogRating: 4})}
	_ = s.Rank("go", in)
	assert.Equal(t, 0.0, in[0].DerivedScore)
}

func TestTop(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	assert.Nil(t, s.Top("go", nil))

	top := s.Top("go", []source.Candidate{
		cand("Other", "", map[string]float64{source.SignalCatalogRating: 5}),
		cand("Go", "", map[string]float64{source.SignalCatalogRating: 4}),
	})
	require.NotNil(t, top)
	assert.Equal(t, "Go", top.Title)
	assert.False(t, math.IsNaN(top.DerivedScore))
}

func TestRelevance_WordBoundaries(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	// "go" must not match inside "google"
	assert.Equal(t, 0.1, s.relevance("go", cand("Google Search", "", nil)))
	assert.Equal(t, 1.2, s.relevance("B2B Sales", cand("The Sales Bible", "", nil)))
	assert.Equal(t, 0.8, s.relevance("B2B Sales", cand("Closing", "b2b playbook", nil)))
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no signals", Config{}},
		{"unnamed", Config{Signals: []Signal{{Weight: 1}}}},
		{"duplicate", Config{Signals: []Signal{{Name: "a"}, {Name: "a"}}}},
		{"negative weight", Config{Signals: []Signal{{Name: "a", Weight: -1}}}},
		{"negative relevance", Config{Signals: []Signal{{Name: "a"}}, Relevance: Relevance{NoMatch: -1}}},
		{"min quality no signal", Config{Signals: []Signal{{Name: "a"}}, MinQuality: &MinQuality{Min: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
