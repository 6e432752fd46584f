package studio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/breaker"
	"github.com/lucasnoah/deepcontext/internal/checks"
	"github.com/lucasnoah/deepcontext/internal/github"
	"github.com/lucasnoah/deepcontext/internal/history"
	"github.com/lucasnoah/deepcontext/internal/llm"
	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/worktree"
)

// Gate names, in evaluation order.
const (
	GateCompliance = "compliance"
	GateAIReview   = "ai-review"
	GateTests      = "tests"
)

// DefaultComplianceMarker is the section a PR description must carry.
const DefaultComplianceMarker = "## 🤖 Copilot Consultation Log"

const maxDiffLen = 60000

// Change is the subject the review gates evaluate.
type Change struct {
	PR  github.PullRequest
	Ref *worktree.LocalRef
}

// ReviewerConfig wires a Reviewer.
type ReviewerConfig struct {
	VCS     VCS
	Tests   checks.TestRunner
	History *history.Log
	Breaker *breaker.Breaker
	// Generator drives the AI review gate and failure analysis. When nil the
	// AI review gate is omitted.
	Generator        llm.Generator
	Prompts          *prompt.Library
	ComplianceMarker string
	// MaxAttempts is the number of reviews a PR gets before the breaker
	// stops further attempts.
	MaxAttempts int
	// Blocking makes a compliance failure skip the remaining gates.
	Blocking  bool
	RulesPath string
	Logger    *zap.Logger
}

// Outcome is what happened to one PR. Skipped is set when the PR already
// failed review at the same head commit and description.
type Outcome struct {
	PR         int
	Title      string
	Merged     bool
	Skipped    bool
	Evaluation *checks.Evaluation
	Err        error
}

// Reviewer gates open PRs and merges the ones that pass.
type Reviewer struct {
	cfg      ReviewerConfig
	pipeline *checks.Pipeline[*Change]
	logger   *zap.Logger

	mu     sync.Mutex
	failed map[int]string // PR number -> fingerprint of the last failed review
}

// NewReviewer validates cfg and assembles the gate pipeline.
func NewReviewer(cfg ReviewerConfig) (*Reviewer, error) {
	if cfg.VCS == nil || cfg.Tests == nil || cfg.History == nil {
		return nil, errors.New("reviewer: vcs, tests and history are required")
	}
	if cfg.Generator != nil && cfg.Prompts == nil {
		return nil, errors.New("reviewer: prompts are required with a generator")
	}
	if cfg.Breaker == nil {
		cfg.Breaker = breaker.New()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ComplianceMarker == "" {
		cfg.ComplianceMarker = DefaultComplianceMarker
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reviewer{cfg: cfg, logger: logger.Named("reviewer"), failed: map[int]string{}}

	gates := []checks.Gate[*Change]{{
		Name:  GateCompliance,
		Class: checks.ClassPolicy,
		Check: r.complianceGate,
	}}
	if cfg.Generator != nil {
		gates = append(gates, checks.Gate[*Change]{
			Name:  GateAIReview,
			Class: checks.ClassQuality,
			Check: r.aiReviewGate,
		})
	}
	gates = append(gates, checks.SuiteGate(GateTests, cfg.Tests, func(c *Change) string { return c.Ref.Path }))

	p, err := checks.NewPipeline(checks.PipelineConfig[*Change]{
		Gates:    gates,
		Blocking: cfg.Blocking,
		Commit: func(ctx context.Context, c *Change) error {
			return cfg.VCS.Merge(ctx, c.PR.Number)
		},
		Logger: r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reviewer: %w", err)
	}
	r.pipeline = p
	return r, nil
}

// Breaker exposes the per-PR attempt counter.
func (r *Reviewer) Breaker() *breaker.Breaker { return r.cfg.Breaker }

// ProcessOpenPRs reviews every open PR, oldest first. Per-PR failures are
// reported in the outcomes; the error is reserved for listing failures and
// cancellation.
func (r *Reviewer) ProcessOpenPRs(ctx context.Context) ([]Outcome, error) {
	prs, err := r.cfg.VCS.ListOpenPRs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open PRs: %w", err)
	}
	if len(prs) == 0 {
		r.logger.Info("no open pull requests")
		return nil, nil
	}

	outcomes := make([]Outcome, 0, len(prs))
	for _, pr := range prs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, r.Review(ctx, pr))
	}
	return outcomes, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func subject(pr int) string { return fmt.Sprintf("PR #%d", pr) }

// breakerKey scopes attempts to one head commit, so a new push starts with a
// fresh budget.
func breakerKey(pr github.PullRequest) string {
	if pr.HeadRefOid == "" {
		return subject(pr.Number)
	}
	head := pr.HeadRefOid
	if len(head) > 12 {
		head = head[:12]
	}
	return fmt.Sprintf("%s@%s", subject(pr.Number), head)
}

func fingerprint(pr github.PullRequest) string {
	return pr.HeadRefOid + "\x00" + pr.Body
}

func (r *Reviewer) alreadyFailed(pr github.PullRequest) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp, ok := r.failed[pr.Number]
	return ok && fp == fingerprint(pr)
}

func (r *Reviewer) markFailed(pr github.PullRequest, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if failed {
		r.failed[pr.Number] = fingerprint(pr)
	} else {
		delete(r.failed, pr.Number)
	}
}

// Review runs the gates for one PR, then merges it or reports why not. The
// worktree is always released. A PR whose gates failed is not reviewed again
// until its head commit or description changes.
func (r *Reviewer) Review(ctx context.Context, pr github.PullRequest) Outcome {
	out := Outcome{PR: pr.Number, Title: pr.Title}
	key := breakerKey(pr)
	logger := r.logger.With(zap.Int("pr", pr.Number), zap.String("review_id", uuid.NewString()))

	if r.alreadyFailed(pr) {
		logger.Debug("unchanged since last failed review, skipping")
		out.Skipped = true
		return out
	}
	if r.cfg.Breaker.HasTripped(key, r.cfg.MaxAttempts) {
		logger.Error("review attempts exhausted, manual intervention required",
			zap.Int("attempts", r.cfg.Breaker.Count(key)))
		out.Err = fmt.Errorf("%s: %w", key, breaker.ErrCircuitOpen)
		return out
	}
	attempt := r.cfg.Breaker.RecordAttempt(key)
	logger.Info("reviewing", zap.String("title", pr.Title), zap.Int("attempt", attempt))

	ref, err := r.cfg.VCS.FetchChange(ctx, pr.Number)
	if err != nil {
		logger.Error("fetch failed", zap.Error(err))
		out.Err = fmt.Errorf("fetching %s: %w", key, err)
		return out
	}
	defer func() {
		if err := r.cfg.VCS.ReleaseChange(context.WithoutCancel(ctx), ref); err != nil {
			logger.Warn("worktree release failed", zap.Error(err))
		}
	}()

	eval := r.pipeline.Evaluate(ctx, &Change{PR: pr, Ref: ref})
	out.Evaluation = eval

	if eval.Committed {
		out.Merged = true
		r.markFailed(pr, false)
		logger.Info("merged")
		r.appendHistory(logger, history.Entry{
			Subject: subject(pr.Number),
			Status:  history.StatusPassed,
			Fields: []history.Field{
				{Key: "Title", Value: pr.Title},
				{Key: "Branch", Value: pr.HeadRefName},
			},
		})
		return out
	}

	report := eval.FailureReport()
	if err := r.cfg.VCS.PostComment(ctx, pr.Number, report); err != nil {
		logger.Warn("posting review comment failed", zap.Error(err))
	}
	var failed []string
	for _, f := range eval.Failures() {
		failed = append(failed, f.Gate)
	}
	// Merge errors are retried on the next pass; gate failures wait for a change.
	r.markFailed(pr, len(failed) > 0 && ctx.Err() == nil)
	fields := []history.Field{{Key: "Title", Value: pr.Title}}
	if len(failed) > 0 {
		fields = append(fields, history.Field{Key: "Failed Gates", Value: strings.Join(failed, ", ")})
	}
	if eval.CommitErr != nil {
		fields = append(fields, history.Field{Key: "Merge Error", Value: eval.CommitErr.Error()})
		out.Err = fmt.Errorf("merging %s: %w", key, eval.CommitErr)
	}
	r.appendHistory(logger, history.Entry{
		Subject:  subject(pr.Number),
		Status:   history.StatusFailed,
		Fields:   fields,
		Sections: []history.Section{{Title: "Review Suggestions", Body: r.AnalyzeFailure(ctx, report)}},
		Raw:      report,
	})
	logger.Warn("not merged", zap.Strings("failed_gates", failed))
	return out
}

func (r *Reviewer) appendHistory(logger *zap.Logger, e history.Entry) {
	if err := r.cfg.History.Append(e); err != nil {
		logger.Error("writing review history failed", zap.Error(err))
	}
}

// CheckCompliance re-fetches the PR body and looks for the compliance
// marker.
func (r *Reviewer) CheckCompliance(ctx context.Context, pr int) (bool, error) {
	body, err := r.cfg.VCS.PRBody(ctx, pr)
	if err != nil {
		return false, err
	}
	return strings.Contains(body, r.cfg.ComplianceMarker), nil
}

func (r *Reviewer) complianceGate(ctx context.Context, c *Change) (checks.Report, error) {
	ok, err := r.CheckCompliance(ctx, c.PR.Number)
	if err != nil {
		return checks.Report{}, err
	}
	if !ok {
		return checks.Report{Message: fmt.Sprintf("PR description is missing the %q section.", r.cfg.ComplianceMarker)}, nil
	}
	return checks.Report{Passed: true, Message: "compliance log present"}, nil
}

type reviewVerdict struct {
	Approved *bool  `json:"approved"`
	Summary  string `json:"summary"`
}

func (r *Reviewer) aiReviewGate(ctx context.Context, c *Change) (checks.Report, error) {
	diff, err := r.cfg.VCS.PRDiff(ctx, c.PR.Number)
	if err != nil {
		return checks.Report{}, err
	}
	if len(diff) > maxDiffLen {
		diff = truncate(diff, maxDiffLen) + "\n…(diff truncated)"
	}
	system, err := r.cfg.Prompts.Render("reviewer-system.md", nil)
	if err != nil {
		return checks.Report{}, err
	}
	user, err := r.cfg.Prompts.Render("ai-review.md", prompt.Vars{"rules": r.rules(), "diff": diff})
	if err != nil {
		return checks.Report{}, err
	}
	raw, err := r.cfg.Generator.Generate(ctx, system, user)
	if err != nil {
		return checks.Report{}, fmt.Errorf("ai review: %w", err)
	}

	var v reviewVerdict
	if err := llm.DecodeJSON(raw, &v); err != nil || v.Approved == nil {
		return checks.Report{
			Message: "AI review verdict could not be read; treating as not approved.",
			Output:  raw,
		}, nil
	}
	summary := strings.TrimSpace(v.Summary)
	if summary == "" {
		summary = "no summary given"
	}
	return checks.Report{Passed: *v.Approved, Message: summary}, nil
}

// AnalyzeFailure asks the generator for a root cause and fix. It never
// fails; problems are described in the returned text.
func (r *Reviewer) AnalyzeFailure(ctx context.Context, failureLog string) string {
	if r.cfg.Generator == nil {
		return "Automated analysis unavailable."
	}
	system, err := r.cfg.Prompts.Render("reviewer-system.md", nil)
	if err != nil {
		return "Automated analysis unavailable: " + err.Error()
	}
	user, err := r.cfg.Prompts.Render("failure-analysis.md", prompt.Vars{"rules": r.rules(), "failure_log": failureLog})
	if err != nil {
		return "Automated analysis unavailable: " + err.Error()
	}
	out, err := r.cfg.Generator.Generate(ctx, system, user)
	if err != nil || strings.TrimSpace(out) == "" {
		r.logger.Warn("failure analysis failed", zap.Error(err))
		return "Automated analysis unavailable."
	}
	return strings.TrimSpace(out)
}

// rules returns the house rules file, or "" when there is none.
func (r *Reviewer) rules() string {
	if r.cfg.RulesPath == "" {
		return ""
	}
	data, err := os.ReadFile(r.cfg.RulesPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("reading rules failed", zap.String("path", r.cfg.RulesPath), zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
