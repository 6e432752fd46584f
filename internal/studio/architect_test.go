package studio

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/deepcontext/internal/github"
	"github.com/lucasnoah/deepcontext/internal/history"
	"github.com/lucasnoah/deepcontext/internal/prompt"
)

func TestTag(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{"Refactor studio/architect to follow SOLID principles", TagRefactor},
		{"Refactor the bug-prone parser", TagRefactor},
		{"Fix the crash in the curator", TagBugfix},
		{"Scorer BUG with empty signals", TagBugfix},
		{"Add YouTube transcripts", TagFeature},
	}
	for _, tt := range tests {
		if got := Tag(tt.request); got != tt.want {
			t.Errorf("Tag(%q) = %q, want %q", tt.request, got, tt.want)
		}
	}
}

func TestDraft(t *testing.T) {
	a := NewArchitect(prompt.NewLibrary(""), nil, nil)

	issue, err := a.Draft("Fix the crash in the curator")
	require.NoError(t, err)
	assert.Equal(t, "[Bugfix] Fix the crash in the curator", issue.Title)
	assert.True(t, strings.HasPrefix(issue.Body, "@jules\n"))
	assert.Contains(t, issue.Body, `based on the request: "Fix the crash in the curator"`)
	assert.Contains(t, issue.Body, "### Step 1: The Failing Test")
	assert.NotContains(t, issue.Body, "Known Pitfalls")
	assert.True(t, strings.HasPrefix(issue.String(), "Title: [Bugfix] Fix the crash in the curator\nBody:\n@jules"))
}

func TestDraft_IncludesHistory(t *testing.T) {
	log := history.Open(filepath.Join(t.TempDir(), "review_history.md"))
	require.NoError(t, log.Append(history.Entry{Subject: "PR #3", Status: history.StatusFailed}))
	a := NewArchitect(prompt.NewLibrary(""), log, nil)

	issue, err := a.Draft("Add caching")
	require.NoError(t, err)
	assert.Contains(t, issue.Body, "### Known Pitfalls\n## PR #3: FAILED")
}

func TestDraft_EmptyRequest(t *testing.T) {
	_, err := NewArchitect(prompt.NewLibrary(""), nil, nil).Draft("  ")
	assert.Error(t, err)
}

type fakeIssues struct {
	opts github.IssueCreateOpts
}

func (f *fakeIssues) CreateIssue(ctx context.Context, opts github.IssueCreateOpts) (string, error) {
	f.opts = opts
	return "https://github.com/acme/deepcontext/issues/12", nil
}

func TestFile(t *testing.T) {
	issues := &fakeIssues{}
	a := NewArchitect(prompt.NewLibrary(""), nil, issues)

	issue, url, err := a.File(context.Background(), "Refactor the loop controller")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/deepcontext/issues/12", url)
	assert.Equal(t, issue.Title, issues.opts.Title)
	assert.Equal(t, []string{"refactor"}, issues.opts.Labels)
}

func TestFile_NoTracker(t *testing.T) {
	_, _, err := NewArchitect(prompt.NewLibrary(""), nil, nil).File(context.Background(), "x")
	assert.Error(t, err)
}
