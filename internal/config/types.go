package config

import (
	"time"

	"github.com/lucasnoah/deepcontext/internal/scoring"
)

// Config is the top-level configuration parsed from deepcontext.yaml.
type Config struct {
	LLM         LLM         `yaml:"llm"`
	Sources     Sources     `yaml:"sources"`
	Curator     Curator     `yaml:"curator"`
	Analyst     Analyst     `yaml:"analyst"`
	Broadcaster Broadcaster `yaml:"broadcaster"`
	Product     Product     `yaml:"product"`
	Studio      Studio      `yaml:"studio"`
	Manager     Manager     `yaml:"manager"`
	Prompts     Prompts     `yaml:"prompts"`
	Logging     Logging     `yaml:"logging"`
}

// LLM selects and configures the text generator.
type LLM struct {
	Provider        string  `yaml:"provider"` // genai | cli
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	Project         string  `yaml:"project"`
	Location        string  `yaml:"location"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	CLIBinary       string  `yaml:"cli_binary"`
	Timeout         string  `yaml:"timeout"`
}

// TimeoutDuration parses Timeout; zero means no per-call deadline.
func (l LLM) TimeoutDuration() time.Duration { return parseDuration(l.Timeout) }

// Sources configures the catalog and search adapters.
type Sources struct {
	Order       []string    `yaml:"order"`
	Timeout     string      `yaml:"timeout"`
	GoogleBooks GoogleBooks `yaml:"google_books"`
	Tavily      Tavily      `yaml:"tavily"`
	HackerNews  HackerNews  `yaml:"hacker_news"`
}

// TimeoutDuration parses Timeout.
func (s Sources) TimeoutDuration() time.Duration { return parseDuration(s.Timeout) }

// GoogleBooks configures the Google Books adapter.
type GoogleBooks struct {
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
	Language   string `yaml:"language"`
}

// Tavily configures the Tavily adapter.
type Tavily struct {
	APIKey      string `yaml:"api_key"`
	MaxResults  int    `yaml:"max_results"`
	QueryFormat string `yaml:"query_format"`
}

// HackerNews configures discussion lookups.
type HackerNews struct {
	Enabled            *bool `yaml:"enabled,omitempty"`
	MinStoryPoints     int   `yaml:"min_story_points"`
	CommentStoryPoints int   `yaml:"comment_story_points"`
	MaxDepth           int   `yaml:"max_depth"`
	MaxComments        int   `yaml:"max_comments"`
}

// On reports whether HN lookups are enabled (default true).
func (h HackerNews) On() bool { return h.Enabled == nil || *h.Enabled }

// Curator configures selection and scoring.
type Curator struct {
	Scoring            scoring.Config `yaml:"scoring"`
	VerifyReliability  *bool          `yaml:"verify_reliability,omitempty"`
	DefaultReliability float64        `yaml:"default_reliability"`
}

// Verify reports whether reliability verification runs (default true).
func (c Curator) Verify() bool { return c.VerifyReliability == nil || *c.VerifyReliability }

// Analyst configures the reflexion loop.
type Analyst struct {
	MaxIterations    int    `yaml:"max_iterations"`
	ApprovalSentinel string `yaml:"approval_sentinel"`
}

// Host is one podcast speaker.
type Host struct {
	Name  string `yaml:"name"`
	Voice string `yaml:"voice"`
}

// Broadcaster configures script generation.
type Broadcaster struct {
	Hosts []Host `yaml:"hosts"`
}

// Product configures the content pipeline outputs.
type Product struct {
	OutputDir  string `yaml:"output_dir"`
	MaxReviews int    `yaml:"max_reviews"`
}

// Check defines a deterministic command gate.
type Check struct {
	Command    string `yaml:"command"`
	Parser     string `yaml:"parser"`
	Timeout    string `yaml:"timeout"`
	FixCommand string `yaml:"fix_command"`
	AutoFix    bool   `yaml:"auto_fix"`
}

// TimeoutDuration parses Timeout, returning 0 when unset or invalid.
func (c Check) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

// Studio configures the review agent.
type Studio struct {
	Repo              string `yaml:"repo"`
	RepoDir           string `yaml:"repo_dir"`
	WorktreeDir       string `yaml:"worktree_dir"`
	BaseBranch        string `yaml:"base_branch"`
	MergeStrategy     string `yaml:"merge_strategy"`
	HistoryPath       string `yaml:"history_path"`
	RulesPath         string `yaml:"rules_path"`
	ComplianceMarker  string `yaml:"compliance_marker"`
	BlockingPolicy    *bool  `yaml:"blocking_policy,omitempty"`
	AIReview          *bool  `yaml:"ai_review,omitempty"`
	MaxReviewAttempts int    `yaml:"max_review_attempts"`
	Tests             Check  `yaml:"tests"`
}

// Blocking reports whether policy failures skip later gates (default true).
func (s Studio) Blocking() bool { return s.BlockingPolicy == nil || *s.BlockingPolicy }

// Review reports whether the AI review gate runs (default true).
func (s Studio) Review() bool { return s.AIReview == nil || *s.AIReview }

// Manager configures the autopilot loop.
type Manager struct {
	Interval               string `yaml:"interval"`
	HealthInterval         string `yaml:"health_interval"`
	HealthTopic            string `yaml:"health_topic"`
	MaxOptimizationRetries int    `yaml:"max_optimization_retries"`
	OptimizeTarget         string `yaml:"optimize_target"`
	LogPath                string `yaml:"log_path"`
}

// IntervalDuration parses Interval.
func (m Manager) IntervalDuration() time.Duration { return parseDuration(m.Interval) }

// HealthIntervalDuration parses HealthInterval.
func (m Manager) HealthIntervalDuration() time.Duration { return parseDuration(m.HealthInterval) }

// Prompts configures template overrides.
type Prompts struct {
	Dir string `yaml:"dir"`
}

// Logging configures the zap logger.
type Logging struct {
	Verbose bool   `yaml:"verbose"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
