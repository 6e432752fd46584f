package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lucasnoah/deepcontext/internal/breaker"
	"github.com/lucasnoah/deepcontext/internal/studio"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Gate and merge open pull requests",
	Long: `Evaluates every open pull request against the compliance, AI review and
test gates. Passing PRs are merged; failing PRs get a comment and an entry in
the review history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		noAI, _ := cmd.Flags().GetBool("no-ai")
		d, cleanup, err := openDeps(ctx, !noAI)
		if err != nil {
			return err
		}
		defer cleanup()

		r, err := d.newReviewer(breaker.New(), !noAI)
		if err != nil {
			return err
		}
		outcomes, err := r.ProcessOpenPRs(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(outcomes) == 0 {
			fmt.Fprintln(w, "No open pull requests.")
			return nil
		}
		for _, o := range outcomes {
			status := "failed"
			switch {
			case o.Merged:
				status = "merged"
			case o.Skipped:
				status = "skipped"
			}
			fmt.Fprintf(w, "#%-5d %-7s %s\n", o.PR, status, o.Title)
			if o.Err != nil {
				fmt.Fprintf(w, "       %v\n", o.Err)
			}
			if o.Evaluation != nil {
				for _, f := range o.Evaluation.Failures() {
					fmt.Fprintf(w, "       %s: %s\n", f.Gate, f.Message)
				}
			}
		}
		return nil
	},
}

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Run the autopilot: review PRs, health-check the pipeline, tune prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, cleanup, err := openDeps(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		b := breaker.New()
		r, err := d.newReviewer(b, true)
		if err != nil {
			return err
		}
		opt, err := d.newOptimizer()
		if err != nil {
			return err
		}
		mc := d.cfg.Manager
		m, err := studio.NewManager(studio.ManagerConfig{
			Reviewer:               r,
			Optimizer:              opt,
			Health:                 d.healthRun,
			HealthLog:              mc.LogPath,
			HealthOutput:           d.healthOutput(),
			Breaker:                b,
			MaxOptimizationRetries: mc.MaxOptimizationRetries,
			OptimizeTarget:         mc.OptimizeTarget,
			Interval:               mc.IntervalDuration(),
			HealthInterval:         mc.HealthIntervalDuration(),
			HealthTopic:            mc.HealthTopic,
			Logger:                 d.logger,
		})
		if err != nil {
			return err
		}

		runNow, _ := cmd.Flags().GetBool("run-now")
		if once, _ := cmd.Flags().GetBool("once"); once {
			return m.RunOnce(ctx, runNow)
		}
		return m.Run(ctx, runNow)
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <prompt>",
	Short: "Rewrite a prompt template from review history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, cleanup, err := openDeps(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		opt, err := d.newOptimizer()
		if err != nil {
			return err
		}
		res, err := opt.Optimize(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s after %d iteration(s))\n",
			res.Path, res.State.Status, res.State.Iteration)
		return nil
	},
}

var issueCmd = &cobra.Command{
	Use:   "issue <request>",
	Short: "Draft a TDD issue, optionally filing it on GitHub",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDeps(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		request := strings.Join(args, " ")
		create, _ := cmd.Flags().GetBool("create")
		if !create {
			issue, err := studio.NewArchitect(d.prompts, d.history(), nil).Draft(request)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), issue.String())
			return nil
		}

		arch := studio.NewArchitect(d.prompts, d.history(), d.githubClient())
		issue, url, err := arch.File(cmd.Context(), request)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n%s\n", issue.Title, url)
		return nil
	},
}

func init() {
	reviewCmd.Flags().Bool("no-ai", false, "skip the AI review gate")
	managerCmd.Flags().Bool("run-now", false, "run the health check on the first tick")
	managerCmd.Flags().Bool("once", false, "run a single tick and exit")
	issueCmd.Flags().Bool("create", false, "file the issue with gh")
}
