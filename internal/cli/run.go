package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Curate, research, analyze and script an episode for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, cleanup, err := openDeps(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		if out, _ := cmd.Flags().GetString("output"); out != "" {
			d.cfg.Product.OutputDir = out
		}
		p, err := d.newPipeline(d.logger)
		if err != nil {
			return err
		}

		topic := strings.Join(args, " ")
		res, err := p.Run(ctx, topic)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Run:      %s\n", res.RunID)
		fmt.Fprintf(w, "Book:     %s by %s\n", res.Book.Title, strings.Join(res.Book.Authors, ", "))
		fmt.Fprintf(w, "Analysis: %s after %d iteration(s)\n", res.Analysis.State.Status, res.Analysis.State.Iteration)
		fmt.Fprintf(w, "Script:   %d line(s)\n", len(res.Script))
		fmt.Fprintf(w, "Output:   %s\n", d.cfg.Product.OutputDir)
		return nil
	},
}

var curateCmd = &cobra.Command{
	Use:   "curate <topic>",
	Short: "Pick the best book for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		noVerify, _ := cmd.Flags().GetBool("no-verify")
		d, cleanup, err := openDeps(ctx, !noVerify)
		if err != nil {
			return err
		}
		defer cleanup()

		if noVerify {
			off := false
			d.cfg.Curator.VerifyReliability = &off
		}
		c, err := d.newCurator(d.logger)
		if err != nil {
			return err
		}
		book, err := c.Curate(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s\n", book.Title)
		if len(book.Authors) > 0 {
			fmt.Fprintf(w, "  by %s\n", strings.Join(book.Authors, ", "))
		}
		fmt.Fprintf(w, "  source: %s\n", book.Source)
		fmt.Fprintf(w, "  score: %.2f\n", book.DerivedScore)
		for _, name := range slices.Sorted(maps.Keys(book.Signals)) {
			fmt.Fprintf(w, "  %s: %.2f\n", name, book.Signals[name])
		}
		if reason := book.Notes["reliability_reason"]; reason != "" {
			fmt.Fprintf(w, "  reliability: %s\n", reason)
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Translate a text file into an engineering document",
	Long:  "Runs the analyst's draft, critique and revise loop on a file and prints the final draft. Use - to read stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		d, cleanup, err := openDeps(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := d.newAnalyst(d.logger)
		if err != nil {
			return err
		}
		analysis, err := a.Analyze(ctx, string(data))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), analysis.Text())
		fmt.Fprintf(cmd.ErrOrStderr(), "%s text, %s after %d iteration(s)\n",
			analysis.Type, analysis.State.Status, analysis.State.Iteration)
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("output", "o", "", "output directory (overrides product.output_dir)")
	curateCmd.Flags().Bool("no-verify", false, "skip the LLM reliability check")
}
