package cli

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucasnoah/deepcontext/internal/breaker"
	"github.com/lucasnoah/deepcontext/internal/checks"
	"github.com/lucasnoah/deepcontext/internal/config"
	"github.com/lucasnoah/deepcontext/internal/github"
	"github.com/lucasnoah/deepcontext/internal/history"
	"github.com/lucasnoah/deepcontext/internal/llm"
	"github.com/lucasnoah/deepcontext/internal/logging"
	"github.com/lucasnoah/deepcontext/internal/product"
	"github.com/lucasnoah/deepcontext/internal/prompt"
	"github.com/lucasnoah/deepcontext/internal/reflexion"
	"github.com/lucasnoah/deepcontext/internal/scoring"
	"github.com/lucasnoah/deepcontext/internal/source"
	"github.com/lucasnoah/deepcontext/internal/studio"
	"github.com/lucasnoah/deepcontext/internal/worktree"
)

// deps holds everything built from one config for one command.
type deps struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *prompt.Library
	gen     llm.Generator
}

// openDeps loads config and builds the logger. The generator is built only
// when needGen is set, so commands that never call a model work without
// credentials.
func openDeps(ctx context.Context, needGen bool) (*deps, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{
		Verbose: verbose || cfg.Logging.Verbose,
		Console: console || cfg.Logging.Console,
		File:    cfg.Logging.File,
	})
	if err != nil {
		return nil, nil, err
	}
	d := &deps{cfg: cfg, logger: logger, prompts: newPromptLibrary(cfg.Prompts.Dir)}
	cleanup := func() { _ = logger.Sync() }

	if needGen {
		gen, err := newGenerator(ctx, cfg.LLM)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.gen = gen
	}
	return d, cleanup, nil
}

func newPromptLibrary(dir string) *prompt.Library {
	return prompt.NewLibrary(dir)
}

func newGenerator(ctx context.Context, c config.LLM) (llm.Generator, error) {
	var gen llm.Generator
	switch c.Provider {
	case "cli":
		gen = llm.NewCLI(c.CLIBinary, c.Model)
	default:
		g, err := llm.NewGenAI(ctx, llm.GenAIConfig{
			APIKey:          c.APIKey,
			Project:         c.Project,
			Location:        c.Location,
			Model:           c.Model,
			Temperature:     c.Temperature,
			MaxOutputTokens: c.MaxOutputTokens,
		})
		if err != nil {
			return nil, err
		}
		gen = g
	}
	return llm.WithTimeout(gen, c.TimeoutDuration()), nil
}

func (d *deps) newLoop() (*reflexion.Controller, error) {
	return reflexion.New(reflexion.Options{
		MaxIterations:    d.cfg.Analyst.MaxIterations,
		ApprovalSentinel: d.cfg.Analyst.ApprovalSentinel,
	}, reflexion.WithLogger(d.logger.Named("reflexion")))
}

func (d *deps) httpClient() *http.Client {
	return &http.Client{Timeout: d.cfg.Sources.TimeoutDuration()}
}

func (d *deps) newHackerNews() *source.HackerNews {
	c := d.cfg.Sources.HackerNews
	hn := source.NewHackerNews()
	hn.HTTP = d.httpClient()
	hn.MinStoryPoints = c.MinStoryPoints
	hn.CommentStoryPoints = c.CommentStoryPoints
	hn.MaxDepth = c.MaxDepth
	hn.MaxComments = c.MaxComments
	return hn
}

func (d *deps) newTavily() *source.Tavily {
	c := d.cfg.Sources.Tavily
	t := source.NewTavily(c.APIKey)
	t.HTTP = d.httpClient()
	t.MaxResults = c.MaxResults
	t.QueryFormat = c.QueryFormat
	return t
}

func (d *deps) newChain() (*source.Chain, error) {
	var adapters []source.Adapter
	for _, name := range d.cfg.Sources.Order {
		switch name {
		case source.GoogleBooksName:
			c := d.cfg.Sources.GoogleBooks
			g := source.NewGoogleBooks(c.APIKey)
			g.HTTP = d.httpClient()
			g.MaxResults = c.MaxResults
			g.Language = c.Language
			adapters = append(adapters, g)
		case source.TavilyName:
			adapters = append(adapters, d.newTavily())
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	chain := source.NewChain(d.logger.Named("chain"), adapters...)
	d.logger.Debug("source chain", zap.Strings("adapters", chain.Adapters()))
	return chain, nil
}

func (d *deps) newCurator(logger *zap.Logger) (*product.Curator, error) {
	chain, err := d.newChain()
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.New(d.cfg.Curator.Scoring)
	if err != nil {
		return nil, err
	}
	cc := product.CuratorConfig{
		Selector:           chain,
		Scorer:             scorer,
		Prompts:            d.prompts,
		DefaultReliability: d.cfg.Curator.DefaultReliability,
		Logger:             logger,
	}
	if d.cfg.Sources.HackerNews.On() {
		cc.Enricher = d.newHackerNews()
	}
	if d.cfg.Curator.Verify() {
		cc.Generator = d.gen
	}
	return product.NewCurator(cc)
}

func (d *deps) newAnalyst(logger *zap.Logger) (*product.Analyst, error) {
	loop, err := d.newLoop()
	if err != nil {
		return nil, err
	}
	return product.NewAnalyst(d.gen, d.prompts, loop, logger)
}

func (d *deps) newPipeline(logger *zap.Logger) (*product.Pipeline, error) {
	cur, err := d.newCurator(logger)
	if err != nil {
		return nil, err
	}
	var comments product.CommentSource
	if d.cfg.Sources.HackerNews.On() {
		comments = d.newHackerNews()
	}
	var reviews product.ReviewSource
	if d.cfg.Sources.Tavily.APIKey != "" {
		reviews = d.newTavily()
	}
	res, err := product.NewResearcher(comments, reviews, d.prompts, d.cfg.Product.MaxReviews, logger)
	if err != nil {
		return nil, err
	}
	an, err := d.newAnalyst(logger)
	if err != nil {
		return nil, err
	}
	hosts := make([]product.Host, len(d.cfg.Broadcaster.Hosts))
	for i, h := range d.cfg.Broadcaster.Hosts {
		hosts[i] = product.Host{Name: h.Name, Voice: h.Voice}
	}
	bc, err := product.NewBroadcaster(d.gen, d.prompts, hosts, logger)
	if err != nil {
		return nil, err
	}
	return &product.Pipeline{
		Curator:     cur,
		Researcher:  res,
		Analyst:     an,
		Broadcaster: bc,
		Logger:      logger,
		OutputDir:   d.cfg.Product.OutputDir,
	}, nil
}

func (d *deps) history() *history.Log {
	return history.Open(d.cfg.Studio.HistoryPath)
}

func (d *deps) githubClient() *github.Client {
	return github.NewClient(&github.ExecRunner{}, d.cfg.Studio.Repo)
}

func (d *deps) newReviewer(b *breaker.Breaker, aiReview bool) (*studio.Reviewer, error) {
	st := d.cfg.Studio
	runner := checks.NewRunner(&checks.ExecRunner{})
	tests := checks.NewCommandTests(runner, checks.CheckConfig{
		Name:       studio.GateTests,
		Command:    st.Tests.Command,
		Parser:     st.Tests.Parser,
		Timeout:    st.Tests.TimeoutDuration(),
		AutoFix:    st.Tests.AutoFix,
		FixCommand: st.Tests.FixCommand,
	})
	rc := studio.ReviewerConfig{
		VCS: &studio.GitHubVCS{
			Client:        d.githubClient(),
			Worktrees:     worktree.NewManager(&worktree.ExecGit{}, st.RepoDir, st.WorktreeDir),
			MergeStrategy: st.MergeStrategy,
		},
		Tests:            tests,
		History:          d.history(),
		Breaker:          b,
		Prompts:          d.prompts,
		ComplianceMarker: st.ComplianceMarker,
		MaxAttempts:      st.MaxReviewAttempts,
		Blocking:         st.Blocking(),
		RulesPath:        st.RulesPath,
		Logger:           d.logger,
	}
	if aiReview && st.Review() {
		rc.Generator = d.gen
	}
	return studio.NewReviewer(rc)
}

func (d *deps) newOptimizer() (*studio.Optimizer, error) {
	loop, err := d.newLoop()
	if err != nil {
		return nil, err
	}
	return studio.NewOptimizer(d.gen, d.prompts, d.history(), loop, d.logger)
}

// healthRun runs the product pipeline with a fresh run log. An exhausted
// analysis or an empty script counts as a quality failure.
func (d *deps) healthRun(ctx context.Context, topic string) error {
	logger, closeLog, err := logging.RunLog(d.cfg.Manager.LogPath, d.logger)
	if err != nil {
		return err
	}
	defer closeLog()

	p, err := d.newPipeline(logger)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, topic)
	if err != nil {
		return err
	}
	if !res.Analysis.State.Approved() {
		return fmt.Errorf("%w: analysis ended %s", studio.ErrQuality, res.Analysis.State.Status)
	}
	if len(res.Script) == 0 {
		return fmt.Errorf("%w: empty script", studio.ErrQuality)
	}
	return nil
}

func (d *deps) healthOutput() string {
	return filepath.Join(d.cfg.Product.OutputDir, product.ScriptFile)
}
