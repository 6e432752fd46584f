package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	verbose    bool
	console    bool
)

var rootCmd = &cobra.Command{
	Use:   "deepcontext",
	Short: "deepcontext: books translated into engineering, with a self-reviewing studio",
	Long: `deepcontext picks a book for a topic, gathers outside discussion of it,
translates it into an engineering document through a critique loop and
scripts a two-host episode from the result.

The studio commands review and merge the repository's own pull requests,
draft TDD issues, tune prompts from review history and run the autopilot.

Configuration is read from ./deepcontext.yaml or ~/.deepcontext/config.yaml;
secrets come from the environment.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&console, "console", false, "human-readable log output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(curateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(managerCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(promptCmd)
}
