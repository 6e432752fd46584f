package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/lucasnoah/deepcontext/internal/checks"
	"github.com/lucasnoah/deepcontext/internal/scoring"
	"github.com/lucasnoah/deepcontext/internal/source"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedSources = map[string]bool{
	source.GoogleBooksName: true,
	source.TavilyName:      true,
}

var validMergeStrategies = map[string]bool{
	"squash": true,
	"merge":  true,
	"rebase": true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.LLM.Provider {
	case "genai":
		if cfg.LLM.APIKey == "" && cfg.LLM.Project == "" {
			add("llm", "genai provider requires api_key (GEMINI_API_KEY) or project (PROJECT_ID)")
		}
	case "cli":
		if cfg.LLM.CLIBinary == "" {
			add("llm.cli_binary", "is required for the cli provider")
		}
	default:
		add("llm.provider", "unrecognized provider %q (want genai or cli)", cfg.LLM.Provider)
	}
	validateDuration("llm.timeout", cfg.LLM.Timeout, &errs)

	if len(cfg.Sources.Order) == 0 {
		add("sources.order", "at least one source is required")
	}
	seen := map[string]bool{}
	for i, name := range cfg.Sources.Order {
		field := fmt.Sprintf("sources.order[%d]", i)
		if !recognizedSources[name] {
			add(field, "unrecognized source %q", name)
		}
		if seen[name] {
			add(field, "duplicate source %q", name)
		}
		seen[name] = true
	}
	validateDuration("sources.timeout", cfg.Sources.Timeout, &errs)

	if _, err := scoring.New(cfg.Curator.Scoring); err != nil {
		add("curator.scoring", "%v", err)
	}
	if r := cfg.Curator.DefaultReliability; r < 0 || r > 10 {
		add("curator.default_reliability", "must be within 0..10, got %v", r)
	}

	if cfg.Analyst.MaxIterations < 1 {
		add("analyst.max_iterations", "must be at least 1")
	}
	if cfg.Analyst.ApprovalSentinel == "" {
		add("analyst.approval_sentinel", "is required")
	}

	if len(cfg.Broadcaster.Hosts) != 2 {
		add("broadcaster.hosts", "exactly two hosts are required, got %d", len(cfg.Broadcaster.Hosts))
	}
	for i, h := range cfg.Broadcaster.Hosts {
		if h.Name == "" {
			add(fmt.Sprintf("broadcaster.hosts[%d].name", i), "is required")
		}
	}

	st := cfg.Studio
	if !validMergeStrategies[st.MergeStrategy] {
		add("studio.merge_strategy", "invalid merge strategy %q: must be squash, merge, or rebase", st.MergeStrategy)
	}
	if st.MaxReviewAttempts < 1 {
		add("studio.max_review_attempts", "must be at least 1")
	}
	if st.ComplianceMarker == "" {
		add("studio.compliance_marker", "is required")
	}
	if st.Tests.Command == "" {
		add("studio.tests.command", "is required")
	}
	if parsers := checks.NewRunner(nil); st.Tests.Parser != "" && !parsers.HasParser(st.Tests.Parser) {
		add("studio.tests.parser", "unrecognized parser %q (want one of %s)", st.Tests.Parser, strings.Join(parsers.Parsers(), ", "))
	}
	validateDuration("studio.tests.timeout", st.Tests.Timeout, &errs)

	m := cfg.Manager
	validateDuration("manager.interval", m.Interval, &errs)
	validateDuration("manager.health_interval", m.HealthInterval, &errs)
	if m.MaxOptimizationRetries < 1 {
		add("manager.max_optimization_retries", "must be at least 1")
	}
	if m.HealthTopic == "" {
		add("manager.health_topic", "is required")
	}

	return errs
}

func validateDuration(field, value string, errs *[]ValidationError) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q", value)})
		return
	}
	if d <= 0 {
		*errs = append(*errs, ValidationError{Field: field, Message: "must be positive"})
	}
}
