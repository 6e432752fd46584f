package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/deepcontext/internal/scoring"
	"github.com/lucasnoah/deepcontext/internal/source"
)

// ErrNotFound is returned by LoadDefault when no config file exists.
var ErrNotFound = errors.New("no config found")

// Load reads and parses a configuration from the given YAML file path, then
// fills defaults and environment-provided secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration with environment secrets.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)
	return &cfg
}

// SearchPaths lists the locations LoadDefault checks, in order.
func SearchPaths() []string {
	candidates := []string{"deepcontext.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".deepcontext", "config.yaml"))
	}
	return candidates
}

// LoadDefault loads the first config found in SearchPaths. It returns the
// path it loaded from.
func LoadDefault() (*Config, string, error) {
	candidates := SearchPaths()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	return nil, "", fmt.Errorf("%w (searched: %v)", ErrNotFound, candidates)
}

// applyDefaults fills every unset field.
func applyDefaults(cfg *Config) {
	l := &cfg.LLM
	setString(&l.Provider, "genai")
	if l.Provider == "cli" {
		setString(&l.CLIBinary, "claude")
		setString(&l.Model, "haiku")
	}
	setString(&l.Model, "gemini-2.5-pro")
	setString(&l.Location, "us-central1")
	setString(&l.Timeout, "2m")
	if l.MaxOutputTokens == 0 {
		l.MaxOutputTokens = 8192
	}

	s := &cfg.Sources
	if len(s.Order) == 0 {
		s.Order = []string{source.GoogleBooksName, source.TavilyName}
	}
	setString(&s.Timeout, "10s")
	setInt(&s.GoogleBooks.MaxResults, 20)
	setString(&s.GoogleBooks.Language, "en")
	setInt(&s.Tavily.MaxResults, 5)
	setString(&s.Tavily.QueryFormat, "best books on %s")
	setInt(&s.HackerNews.MinStoryPoints, 20)
	setInt(&s.HackerNews.CommentStoryPoints, 50)
	setInt(&s.HackerNews.MaxDepth, 3)
	setInt(&s.HackerNews.MaxComments, 30)

	c := &cfg.Curator
	if len(c.Scoring.Signals) == 0 {
		c.Scoring.Signals = scoring.DefaultConfig().Signals
	}
	if c.Scoring.Relevance == (scoring.Relevance{}) {
		c.Scoring.Relevance = scoring.DefaultRelevance()
	}
	if c.Scoring.MinQuality == nil && c.Verify() {
		c.Scoring.MinQuality = &scoring.MinQuality{Signal: source.SignalReliability, Min: 6.0}
	}
	if c.DefaultReliability == 0 {
		c.DefaultReliability = 5.0
	}

	a := &cfg.Analyst
	setInt(&a.MaxIterations, 3)
	setString(&a.ApprovalSentinel, "LGTM")

	if len(cfg.Broadcaster.Hosts) == 0 {
		cfg.Broadcaster.Hosts = []Host{{Name: "Alex", Voice: "Fenrir"}, {Name: "Jamie", Voice: "Leda"}}
	}

	p := &cfg.Product
	setString(&p.OutputDir, "output")
	setInt(&p.MaxReviews, 5)

	st := &cfg.Studio
	setString(&st.RepoDir, ".")
	setString(&st.WorktreeDir, filepath.Join(st.RepoDir, "worktrees"))
	setString(&st.BaseBranch, "main")
	setString(&st.MergeStrategy, "squash")
	setString(&st.HistoryPath, filepath.Join("studio", "review_history.md"))
	setString(&st.RulesPath, filepath.Join("studio", "rules.md"))
	setString(&st.ComplianceMarker, "## 🤖 Copilot Consultation Log")
	setInt(&st.MaxReviewAttempts, 3)
	setString(&st.Tests.Command, "go test -json ./...")
	setString(&st.Tests.Parser, "gotest")
	setString(&st.Tests.Timeout, "10m")

	m := &cfg.Manager
	setString(&m.Interval, "5m")
	setString(&m.HealthInterval, "1h")
	setString(&m.HealthTopic, "AI Agents")
	setInt(&m.MaxOptimizationRetries, 3)
	setString(&m.OptimizeTarget, "critique.md")
	setString(&m.LogPath, filepath.Join("studio", "manager.log"))

	setString(&cfg.Prompts.Dir, filepath.Join("studio", "prompts"))
}

// applyEnv fills fields the file left empty from the environment. It runs
// before applyDefaults so an explicit file value always wins.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	fill(&cfg.LLM.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	fill(&cfg.LLM.Project, "PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	fill(&cfg.Sources.GoogleBooks.APIKey, "GOOGLE_BOOKS_API_KEY")
	fill(&cfg.Sources.Tavily.APIKey, "TAVILY_API_KEY")
	fill(&cfg.Studio.Repo, "GITHUB_REPOSITORY")
	fill(&cfg.LLM.Location, "LOCATION")
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
