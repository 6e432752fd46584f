// Package github wraps the gh CLI for the pull request and issue operations
// the studio needs.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CmdRunner provides gh command execution. Interface for testing.
type CmdRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs gh commands via exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("gh %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Client provides GitHub operations against one repository. An empty repo
// lets gh infer it from the working directory.
type Client struct {
	cmd  CmdRunner
	repo string
}

// NewClient creates a GitHub client.
func NewClient(cmd CmdRunner, repo string) *Client {
	return &Client{cmd: cmd, repo: repo}
}

// Repo returns the configured owner/name, if any.
func (c *Client) Repo() string { return c.repo }

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.repo != "" {
		args = append(args, "--repo", c.repo)
	}
	return c.cmd.Run(ctx, args...)
}

// PullRequest is the subset of PR fields the reviewer uses.
type PullRequest struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	HeadRefName string `json:"headRefName"`
	HeadRefOid  string `json:"headRefOid"`
	BaseRefName string `json:"baseRefName"`
	URL         string `json:"url"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`
}

// ValidateNumber checks that an issue or PR number is positive.
func ValidateNumber(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid number %d: must be positive", n)
	}
	return nil
}

// ListOpenPRs returns open pull requests, oldest first.
func (c *Client) ListOpenPRs(ctx context.Context) ([]PullRequest, error) {
	out, err := c.run(ctx, "pr", "list", "--state", "open",
		"--json", "number,title,body,headRefName,headRefOid,baseRefName,url,author", "--limit", "100")
	if err != nil {
		return nil, fmt.Errorf("list open PRs: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	var prs []PullRequest
	if err := json.Unmarshal([]byte(out), &prs); err != nil {
		return nil, fmt.Errorf("parse PR list JSON: %w", err)
	}
	// gh lists newest first
	for i, j := 0, len(prs)-1; i < j; i, j = i+1, j-1 {
		prs[i], prs[j] = prs[j], prs[i]
	}
	return prs, nil
}

// PRBody fetches the current body of a pull request.
func (c *Client) PRBody(ctx context.Context, number int) (string, error) {
	if err := ValidateNumber(number); err != nil {
		return "", err
	}
	out, err := c.run(ctx, "pr", "view", strconv.Itoa(number), "--json", "body")
	if err != nil {
		return "", fmt.Errorf("view PR %d: %w", number, err)
	}
	var pr struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return "", fmt.Errorf("parse PR JSON: %w", err)
	}
	return pr.Body, nil
}

// PRDiff returns the unified diff of a pull request.
func (c *Client) PRDiff(ctx context.Context, number int) (string, error) {
	if err := ValidateNumber(number); err != nil {
		return "", err
	}
	out, err := c.run(ctx, "pr", "diff", strconv.Itoa(number))
	if err != nil {
		return "", fmt.Errorf("diff PR %d: %w", number, err)
	}
	return out, nil
}

// Comment posts a comment on a pull request.
func (c *Client) Comment(ctx context.Context, number int, body string) error {
	if err := ValidateNumber(number); err != nil {
		return err
	}
	if _, err := c.run(ctx, "pr", "comment", strconv.Itoa(number), "--body", body); err != nil {
		return fmt.Errorf("comment on PR %d: %w", number, err)
	}
	return nil
}

// validMergeStrategies is the set of allowed merge strategies.
var validMergeStrategies = map[string]bool{
	"squash": true,
	"merge":  true,
	"rebase": true,
}

// ValidMergeStrategy reports whether s is accepted by MergePR.
func ValidMergeStrategy(s string) bool {
	return s == "" || validMergeStrategies[s]
}

// MergePR merges a pull request by number.
func (c *Client) MergePR(ctx context.Context, number int, strategy string) error {
	if err := ValidateNumber(number); err != nil {
		return err
	}
	if strategy == "" {
		strategy = "squash"
	}
	if !validMergeStrategies[strategy] {
		return fmt.Errorf("invalid merge strategy %q: must be squash, merge, or rebase", strategy)
	}

	if _, err := c.run(ctx, "pr", "merge", strconv.Itoa(number), "--"+strategy, "--delete-branch"); err != nil {
		return fmt.Errorf("merge PR %d: %w", number, err)
	}
	return nil
}

// IssueCreateOpts holds options for creating an issue.
type IssueCreateOpts struct {
	Title  string
	Body   string
	Labels []string
}

// CreateIssue opens an issue and returns its URL.
func (c *Client) CreateIssue(ctx context.Context, opts IssueCreateOpts) (string, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return "", fmt.Errorf("create issue: title is required")
	}
	args := []string{"issue", "create", "--title", opts.Title, "--body", opts.Body}
	for _, l := range opts.Labels {
		args = append(args, "--label", l)
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	return out, nil
}
