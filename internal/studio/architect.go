package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasnoah/deepcontext/internal/github"
	"github.com/lucasnoah/deepcontext/internal/history"
	"github.com/lucasnoah/deepcontext/internal/prompt"
)

// Issue tags chosen from the request wording.
const (
	TagRefactor = "Refactor"
	TagBugfix   = "Bugfix"
	TagFeature  = "Feature"
)

const pitfallsTail = 2000

// Issue is a drafted TDD issue.
type Issue struct {
	Tag   string
	Title string
	Body  string
}

// String renders the issue the way it is shown before filing.
func (i *Issue) String() string {
	return fmt.Sprintf("Title: %s\nBody:\n%s", i.Title, i.Body)
}

// Tag classifies a request. "refactor" wins over "fix"/"bug".
func Tag(request string) string {
	lower := strings.ToLower(request)
	switch {
	case strings.Contains(lower, "refactor"):
		return TagRefactor
	case strings.Contains(lower, "fix"), strings.Contains(lower, "bug"):
		return TagBugfix
	default:
		return TagFeature
	}
}

// IssueCreator files issues (normally *github.Client).
type IssueCreator interface {
	CreateIssue(ctx context.Context, opts github.IssueCreateOpts) (string, error)
}

// Architect drafts TDD issues and optionally files them.
type Architect struct {
	prompts *prompt.Library
	history *history.Log // optional, feeds the "Known Pitfalls" section
	issues  IssueCreator // optional
}

// NewArchitect returns an Architect. history and issues may be nil.
func NewArchitect(prompts *prompt.Library, hist *history.Log, issues IssueCreator) *Architect {
	return &Architect{prompts: prompts, history: hist, issues: issues}
}

// Draft renders an issue for request.
func (a *Architect) Draft(request string) (*Issue, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, errors.New("architect: request is empty")
	}
	var pitfalls string
	if a.history != nil {
		tail, err := a.history.Tail(pitfallsTail)
		if err != nil {
			return nil, err
		}
		pitfalls = strings.TrimSpace(tail)
	}
	body, err := a.prompts.Render("issue.md", prompt.Vars{"request": request, "history": pitfalls})
	if err != nil {
		return nil, fmt.Errorf("architect: %w", err)
	}
	tag := Tag(request)
	return &Issue{Tag: tag, Title: fmt.Sprintf("[%s] %s", tag, request), Body: body}, nil
}

// File drafts and creates the issue, returning its URL.
func (a *Architect) File(ctx context.Context, request string) (*Issue, string, error) {
	if a.issues == nil {
		return nil, "", errors.New("architect: no issue tracker configured")
	}
	issue, err := a.Draft(request)
	if err != nil {
		return nil, "", err
	}
	url, err := a.issues.CreateIssue(ctx, github.IssueCreateOpts{
		Title:  issue.Title,
		Body:   issue.Body,
		Labels: []string{strings.ToLower(issue.Tag)},
	})
	if err != nil {
		return issue, "", err
	}
	return issue, url, nil
}
