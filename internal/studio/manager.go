package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/breaker"
)

// FailureType decides which recovery a failed health check gets.
type FailureType string

const (
	// FailureQuality means the pipeline ran but produced bad output.
	FailureQuality FailureType = "quality"
	// FailureLogic means the pipeline crashed.
	FailureLogic FailureType = "logic"
)

// ErrQuality marks a health-check failure as a quality problem rather than
// a crash. Health functions wrap it.
var ErrQuality = errors.New("output quality check failed")

var logErrorKeywords = []string{"ERROR", "FAILURE", "Traceback"}

// CheckArtifacts verifies a run's output file and log exist and that the log
// holds no error markers.
func CheckArtifacts(logPath, outputPath string) (bool, string) {
	if _, err := os.Stat(outputPath); err != nil {
		return false, fmt.Sprintf("Missing output file: %s", outputPath)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		return false, fmt.Sprintf("Missing log file: %s", logPath)
	}
	content := string(data)
	for _, kw := range logErrorKeywords {
		if strings.Contains(content, kw) {
			return false, "Error detected in log file."
		}
	}
	return true, "Artifacts verified successfully."
}

// PRReviewer processes the open pull request queue.
type PRReviewer interface {
	ProcessOpenPRs(ctx context.Context) ([]Outcome, error)
}

// PromptOptimizer improves a named prompt.
type PromptOptimizer interface {
	Optimize(ctx context.Context, name string) (*OptimizeResult, error)
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Reviewer  PRReviewer
	Optimizer PromptOptimizer // optional; quality recovery is skipped without it
	// Health runs the product pipeline on a topic. Errors wrapping
	// ErrQuality are quality failures; any other error is a crash.
	Health func(ctx context.Context, topic string) error
	// HealthLog and HealthOutput are verified after each health run when
	// both are set.
	HealthLog    string
	HealthOutput string

	Breaker                *breaker.Breaker
	MaxOptimizationRetries int
	OptimizeTarget         string

	Interval       time.Duration
	HealthInterval time.Duration
	HealthTopic    string

	Now    func() time.Time
	Logger *zap.Logger
}

// Manager is the autopilot: each tick reviews PRs and, when due, runs a
// health check and recovery.
type Manager struct {
	cfg    ManagerConfig
	logger *zap.Logger

	mu        sync.Mutex
	lastCheck time.Time
}

// NewManager validates cfg and fills defaults.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Reviewer == nil {
		return nil, errors.New("manager: reviewer is required")
	}
	if cfg.Breaker == nil {
		cfg.Breaker = breaker.New()
	}
	if cfg.MaxOptimizationRetries <= 0 {
		cfg.MaxOptimizationRetries = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = time.Hour
	}
	if cfg.HealthTopic == "" {
		cfg.HealthTopic = "AI Agents"
	}
	if cfg.OptimizeTarget == "" {
		cfg.OptimizeTarget = "critique.md"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, logger: logger.Named("manager")}, nil
}

// RunOnce performs one tick. force runs the health check regardless of the
// interval. Review and health failures are logged, not returned; the error
// reports cancellation or a tripped breaker.
func (m *Manager) RunOnce(ctx context.Context, force bool) error {
	m.logger.Info("checking open pull requests")
	outcomes, err := m.cfg.Reviewer.ProcessOpenPRs(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Error("review pass failed", zap.Error(err))
	}
	for _, o := range outcomes {
		m.logger.Info("review outcome",
			zap.Int("pr", o.PR),
			zap.Bool("merged", o.Merged),
			zap.Bool("skipped", o.Skipped),
			zap.NamedError("reason", o.Err))
	}

	if !force && !m.healthDue() {
		return nil
	}
	return m.HealthCheck(ctx)
}

func (m *Manager) healthDue() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck.IsZero() || m.cfg.Now().Sub(m.lastCheck) > m.cfg.HealthInterval
}

// HealthCheck runs the product pipeline on the health topic, verifies its
// artifacts and triggers recovery on failure.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.cfg.Health == nil {
		return nil
	}
	m.mu.Lock()
	m.lastCheck = m.cfg.Now()
	m.mu.Unlock()

	m.logger.Info("running health check", zap.String("topic", m.cfg.HealthTopic))
	err := m.cfg.Health(ctx, m.cfg.HealthTopic)
	if err == nil && m.cfg.HealthLog != "" && m.cfg.HealthOutput != "" {
		if ok, reason := CheckArtifacts(m.cfg.HealthLog, m.cfg.HealthOutput); !ok {
			err = fmt.Errorf("%w: %s", ErrQuality, reason)
		}
	}
	if err == nil {
		m.logger.Info("health check passed")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	failure := FailureLogic
	if errors.Is(err, ErrQuality) {
		failure = FailureQuality
	}
	m.logger.Error("health check failed", zap.String("failure_type", string(failure)), zap.Error(err))
	return m.Recover(ctx, m.cfg.OptimizeTarget, failure)
}

// Recover routes a failure. Quality failures run the optimizer on target
// until the breaker trips; logic failures only recommend intervention.
func (m *Manager) Recover(ctx context.Context, target string, failure FailureType) error {
	switch failure {
	case FailureQuality:
		if m.cfg.Breaker.HasTripped(target, m.cfg.MaxOptimizationRetries) {
			m.logger.Error("circuit breaker tripped, manual intervention required",
				zap.String("target", target),
				zap.Int("attempts", m.cfg.Breaker.Count(target)))
			return fmt.Errorf("optimizing %s: %w", target, breaker.ErrCircuitOpen)
		}
		attempt := m.cfg.Breaker.RecordAttempt(target)
		if m.cfg.Optimizer == nil {
			m.logger.Warn("no optimizer configured", zap.String("target", target))
			return nil
		}
		m.logger.Info("calling optimizer", zap.String("target", target), zap.Int("attempt", attempt))
		if _, err := m.cfg.Optimizer.Optimize(ctx, target); err != nil {
			m.logger.Error("optimization failed", zap.String("target", target), zap.Error(err))
		}
		return nil
	case FailureLogic:
		m.logger.Warn("crash detected, architect intervention recommended", zap.String("target", target))
		return nil
	default:
		return fmt.Errorf("unknown failure type %q", failure)
	}
}

// Run ticks every Interval until ctx is cancelled or the breaker trips. The
// first tick runs immediately; force applies to it only.
func (m *Manager) Run(ctx context.Context, force bool) error {
	m.logger.Info("autopilot started", zap.Duration("interval", m.cfg.Interval))
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		err := m.RunOnce(ctx, force)
		force = false
		switch {
		case errors.Is(err, breaker.ErrCircuitOpen):
			m.logger.Error("stopping autopilot", zap.Error(err))
			return err
		case ctx.Err() != nil:
			m.logger.Info("autopilot stopped")
			return nil
		case err != nil:
			m.logger.Error("tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			m.logger.Info("autopilot stopped")
			return nil
		case <-ticker.C:
		}
	}
}
