package product

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/scoring"
	"github.com/lucasnoah/deepcontext/internal/source"
)

func newTestPipeline(t *testing.T, gen *routeGen, sel Selector, out string) *Pipeline {
	t.Helper()
	lib := prompt.NewLibrary("")
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)

	cur, err := NewCurator(CuratorConfig{Selector: sel, Scorer: scorer, Generator: gen, Prompts: lib})
	require.NoError(t, err)
	res, err := NewResearcher(&fakeComments{comments: []string{"great book"}}, nil, lib, 5, nil)
	require.NoError(t, err)
	an, err := NewAnalyst(gen, lib, newLoop(t, 3), nil)
	require.NoError(t, err)
	bc, err := NewBroadcaster(gen, lib, hosts, nil)
	require.NoError(t, err)
	return &Pipeline{Curator: cur, Researcher: res, Analyst: an, Broadcaster: bc, OutputDir: out}
}

func TestPipeline_Run(t *testing.T) {
	gen := (&routeGen{}).
		on("Rate the credibility", fixed(`{"score": 8}`)).
		on("Classify", fixed("instructional")).
		on("Turn the methods", fixed("# Engineering notes")).
		on("Compare the draft", fixed("LGTM")).
		on("Write a dialogue", fixed(`[{"speaker":"Alex","text":"Hi"}]`))
	sel := &fakeSelector{cands: []source.Candidate{{Title: "B2B Sales Playbook", Description: "sales"}}}
	out := t.TempDir()

	p := newTestPipeline(t, gen, sel, out)
	res, err := p.Run(context.Background(), "B2B Sales for Startups")
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "B2B Sales for Startups", sel.query)
	assert.Equal(t, "B2B Sales Playbook", res.Book.Title)
	assert.Contains(t, res.Research.Text, "great book")
	assert.Equal(t, "# Engineering notes", res.Analysis.Text())
	assert.Len(t, res.Script, 1)

	data, err := os.ReadFile(filepath.Join(out, AnalysisFile))
	require.NoError(t, err)
	assert.Equal(t, "# Engineering notes", string(data))

	data, err = os.ReadFile(filepath.Join(out, ScriptFile))
	require.NoError(t, err)
	var lines []Line
	require.NoError(t, json.Unmarshal(data, &lines))
	assert.Equal(t, "Hi", lines[0].Text)
}

func TestPipeline_CurationFailureStops(t *testing.T) {
	gen := &routeGen{}
	sel := &fakeSelector{err: &source.AllSourcesFailedError{Query: "q"}}
	p := newTestPipeline(t, gen, sel, "")

	res, err := p.Run(context.Background(), "q")
	var chainErr *source.AllSourcesFailedError
	require.ErrorAs(t, err, &chainErr)
	assert.Nil(t, res.Book)
	assert.Empty(t, gen.calls)
}

func TestPipeline_Validation(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), "x")
	assert.Error(t, err)
}
