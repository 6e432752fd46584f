// Package studio is the self-governing layer: it reviews and merges the
// repository's own pull requests, drafts issues, tunes prompts from review
// history and runs the autopilot loop that ties these together.
package studio

import (
	"context"

	"github.com/lucasnoah/deepcontext/internal/github"
	"github.com/lucasnoah/deepcontext/internal/worktree"
)

// VCS is everything the reviewer needs from the hosting service and the
// local checkout.
type VCS interface {
	ListOpenPRs(ctx context.Context) ([]github.PullRequest, error)
	PRBody(ctx context.Context, pr int) (string, error)
	PRDiff(ctx context.Context, pr int) (string, error)
	FetchChange(ctx context.Context, pr int) (*worktree.LocalRef, error)
	ReleaseChange(ctx context.Context, ref *worktree.LocalRef) error
	PostComment(ctx context.Context, pr int, body string) error
	Merge(ctx context.Context, pr int) error
}

// GitHubVCS implements VCS with the gh CLI and git worktrees.
type GitHubVCS struct {
	Client        *github.Client
	Worktrees     *worktree.Manager
	MergeStrategy string
}

func (g *GitHubVCS) ListOpenPRs(ctx context.Context) ([]github.PullRequest, error) {
	return g.Client.ListOpenPRs(ctx)
}

func (g *GitHubVCS) PRBody(ctx context.Context, pr int) (string, error) {
	return g.Client.PRBody(ctx, pr)
}

func (g *GitHubVCS) PRDiff(ctx context.Context, pr int) (string, error) {
	return g.Client.PRDiff(ctx, pr)
}

func (g *GitHubVCS) FetchChange(ctx context.Context, pr int) (*worktree.LocalRef, error) {
	return g.Worktrees.FetchChange(ctx, pr)
}

func (g *GitHubVCS) ReleaseChange(ctx context.Context, ref *worktree.LocalRef) error {
	return g.Worktrees.Release(ctx, ref)
}

func (g *GitHubVCS) PostComment(ctx context.Context, pr int, body string) error {
	return g.Client.Comment(ctx, pr, body)
}

func (g *GitHubVCS) Merge(ctx context.Context, pr int) error {
	return g.Client.MergePR(ctx, pr, g.MergeStrategy)
}
