// Package worktree checks pull requests out into isolated git worktrees so
// gates can run against the proposed code without touching the main tree.
package worktree

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.CommandContext.
type ExecGit struct{}

func (g *ExecGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Manager handles git worktree operations.
type Manager struct {
	git     GitRunner
	baseDir string // where worktrees are created (repo-root/worktrees/)
	repoDir string // git repo root
	remote  string
}

// NewManager creates a worktree manager.
func NewManager(git GitRunner, repoDir string, baseDir string) *Manager {
	if baseDir == "" {
		baseDir = filepath.Join(repoDir, "worktrees")
	}
	return &Manager{git: git, repoDir: repoDir, baseDir: baseDir, remote: "origin"}
}

// LocalRef is a pull request checked out on disk.
type LocalRef struct {
	PR     int
	Branch string
	Path   string
}

// Branch returns the local branch name used for a pull request.
func Branch(pr int) string {
	return sanitizeBranch(fmt.Sprintf("pr-%d", pr))
}

// Path returns the worktree path for a pull request.
func (m *Manager) Path(pr int) string {
	return filepath.Join(m.baseDir, fmt.Sprintf("pr-%d", pr))
}

// FetchChange fetches the pull request head into a local branch and checks
// it out into its own worktree. A stale worktree from an earlier run is
// replaced.
func (m *Manager) FetchChange(ctx context.Context, pr int) (*LocalRef, error) {
	if pr <= 0 {
		return nil, fmt.Errorf("invalid PR number %d: must be positive", pr)
	}

	branch := Branch(pr)
	path := m.Path(pr)

	// leading + forces the update when the PR was force-pushed
	refspec := fmt.Sprintf("+pull/%d/head:%s", pr, branch)
	if _, err := m.git.Run(ctx, m.repoDir, "fetch", m.remote, refspec); err != nil {
		return nil, fmt.Errorf("fetch PR %d: %w", pr, err)
	}

	_, err := m.git.Run(ctx, m.repoDir, "worktree", "add", path, branch)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "already checked out") {
			return nil, fmt.Errorf("create worktree: %w", err)
		}
		_, _ = m.git.Run(ctx, m.repoDir, "worktree", "remove", "--force", path)
		if _, err := m.git.Run(ctx, m.repoDir, "worktree", "add", path, branch); err != nil {
			return nil, fmt.Errorf("recreate worktree: %w", err)
		}
	}

	return &LocalRef{PR: pr, Branch: branch, Path: path}, nil
}

// Release removes the worktree and its local branch. Gates may leave build
// artifacts behind, so removal is forced.
func (m *Manager) Release(ctx context.Context, ref *LocalRef) error {
	if ref == nil {
		return nil
	}
	if _, err := m.git.Run(ctx, m.repoDir, "worktree", "remove", "--force", ref.Path); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	if ref.Branch != "" && ref.Branch != "main" && ref.Branch != "master" {
		if _, err := m.git.Run(ctx, m.repoDir, "branch", "-D", ref.Branch); err != nil {
			return fmt.Errorf("delete branch %q: %w", ref.Branch, err)
		}
	}
	return nil
}

var nonAlphaNum = regexp.MustCompile(`[^a-zA-Z0-9/_-]+`)

// sanitizeBranch cleans up a branch name.
func sanitizeBranch(name string) string {
	s := nonAlphaNum.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
