package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect and install prompt templates",
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates and whether each is overridden",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib := newPromptLibrary(cfg.Prompts.Dir)
		for _, name := range lib.Names() {
			origin := "builtin"
			if lib.Overridden(name) {
				origin = "override"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", name, origin)
		}
		return nil
	},
}

var promptShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the effective source of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src, err := newPromptLibrary(cfg.Prompts.Dir).Source(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), src)
		return nil
	},
}

var promptInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Copy the built-in templates into the override directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := newPromptLibrary(cfg.Prompts.Dir).Install(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Templates installed to %s\n", cfg.Prompts.Dir)
		return nil
	},
}

func init() {
	promptCmd.AddCommand(promptListCmd)
	promptCmd.AddCommand(promptShowCmd)
	promptCmd.AddCommand(promptInstallCmd)
}
