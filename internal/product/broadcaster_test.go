package product

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/deepcontext/internal/prompt"
)

var hosts = []Host{{Name: "Alex", Voice: "Fenrir"}, {Name: "Sarah", Voice: "Leda"}}

func TestScript_Decodes(t *testing.T) {
	gen := (&routeGen{}).on("Write a dialogue", fixed("Here you go:\n```json\n"+
		`[{"speaker":"Alex","text":"WORM storage? Really?"},{"speaker":"Sarah","text":"Yes."},{"speaker":"Alex","text":" "}]`+
		"\n```"))
	b, err := NewBroadcaster(gen, prompt.NewLibrary(""), hosts, nil)
	require.NoError(t, err)

	lines, err := b.Script(context.Background(), "analysis")
	require.NoError(t, err)
	want := []Line{
		{Speaker: "Alex", Text: "WORM storage? Really?"},
		{Speaker: "Sarah", Text: "Yes."},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, gen.calls[0], "between Alex and Sarah")
}

func TestScript_MalformedIsEmpty(t *testing.T) {
	gen := (&routeGen{}).on("", fixed("sorry, no script today"))
	b, err := NewBroadcaster(gen, prompt.NewLibrary(""), hosts, nil)
	require.NoError(t, err)

	lines, err := b.Script(context.Background(), "analysis")
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestVoice(t *testing.T) {
	b, err := NewBroadcaster(&routeGen{}, prompt.NewLibrary(""), hosts, nil)
	require.NoError(t, err)
	assert.Equal(t, "Fenrir", b.Voice("Alex"))
	assert.Equal(t, "Fenrir", b.Voice("alex "))
	assert.Equal(t, "Leda", b.Voice("Sarah"))
	assert.Equal(t, "Leda", b.Voice("Narrator"))
}

func TestNewBroadcaster_NeedsTwoHosts(t *testing.T) {
	_, err := NewBroadcaster(&routeGen{}, prompt.NewLibrary(""), hosts[:1], nil)
	assert.Error(t, err)
}
