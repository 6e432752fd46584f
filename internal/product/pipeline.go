package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/source"
)

// Artifact file names written by Result.Write.
const (
	AnalysisFile = "analysis.md"
	ScriptFile   = "script.json"
)

// Result is the output of one pipeline run.
type Result struct {
	RunID    string
	Topic    string
	Book     *source.Candidate
	Research *Research
	Analysis *Analysis
	Script   []Line
	Started  time.Time
	Finished time.Time
}

// Pipeline chains curate, research, analyze and script.
type Pipeline struct {
	Curator     *Curator
	Researcher  *Researcher
	Analyst     *Analyst
	Broadcaster *Broadcaster
	Logger      *zap.Logger
	// OutputDir receives the run's artifacts when non-empty.
	OutputDir string
}

func (p *Pipeline) validate() error {
	switch {
	case p.Curator == nil:
		return errors.New("pipeline: curator is required")
	case p.Researcher == nil:
		return errors.New("pipeline: researcher is required")
	case p.Analyst == nil:
		return errors.New("pipeline: analyst is required")
	case p.Broadcaster == nil:
		return errors.New("pipeline: broadcaster is required")
	}
	return nil
}

// Run executes every stage for topic. The first failing stage aborts the
// run; the partial result is returned alongside the error.
func (p *Pipeline) Run(ctx context.Context, topic string) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	res := &Result{RunID: uuid.NewString(), Topic: topic, Started: time.Now()}
	logger = logger.With(zap.String("run_id", res.RunID))
	logger.Info("pipeline started", zap.String("topic", topic))

	book, err := p.Curator.Curate(ctx, topic)
	if err != nil {
		logger.Error("curation failed", zap.Error(err))
		return res, fmt.Errorf("curate: %w", err)
	}
	res.Book = book

	research, err := p.Researcher.Gather(ctx, *book)
	if err != nil {
		return res, fmt.Errorf("research: %w", err)
	}
	res.Research = research

	analysis, err := p.Analyst.Analyze(ctx, research.Text)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		return res, fmt.Errorf("analyze: %w", err)
	}
	res.Analysis = analysis

	script, err := p.Broadcaster.Script(ctx, analysis.Text())
	if err != nil {
		return res, fmt.Errorf("script: %w", err)
	}
	res.Script = script
	res.Finished = time.Now()

	if p.OutputDir != "" {
		if _, _, err := res.Write(p.OutputDir); err != nil {
			return res, err
		}
	}
	logger.Info("pipeline finished",
		zap.String("book", book.Title),
		zap.String("analysis_status", string(analysis.State.Status)),
		zap.Int("script_lines", len(script)),
		zap.Duration("elapsed", res.Finished.Sub(res.Started)),
	)
	return res, nil
}

// Write stores the analysis and script under dir, replacing the previous
// run's files.
func (r *Result) Write(dir string) (analysisPath, scriptPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating output dir: %w", err)
	}
	analysisPath = filepath.Join(dir, AnalysisFile)
	if err := os.WriteFile(analysisPath, []byte(r.Analysis.Text()), 0644); err != nil {
		return "", "", fmt.Errorf("writing analysis: %w", err)
	}

	data, err := json.MarshalIndent(r.Script, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encoding script: %w", err)
	}
	scriptPath = filepath.Join(dir, ScriptFile)
	if err := os.WriteFile(scriptPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("writing script: %w", err)
	}
	return analysisPath, scriptPath, nil
}
