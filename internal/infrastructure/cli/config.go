package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change workspace settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(root)
		if err != nil {
			return err
		}
		applyFlagOverrides(cfg)

		rubricPath := cfg.RubricFile
		if rubricPath == "" {
			rubricPath = "(default) .prscore/rubric.yaml"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_url:     %s\n", cfg.APIURL)
		fmt.Fprintf(out, "timeout:     %s\n", cfg.Timeout)
		fmt.Fprintf(out, "log_level:   %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "rubric_file: %s\n", rubricPath)
		fmt.Fprintf(out, "webhooks:    %d\n", len(cfg.Webhooks))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Save a setting to .prscore/config.yaml",
	Example: `  prscore config set api_url http://localhost:3003
  prscore config set timeout 2m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFileConfig(root)
		if err != nil {
			return err
		}
		if cfg == nil {
			cfg = &config.Config{}
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return MapError(err)
		}
		if err := config.SaveConfig(root, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	RootCmd.AddCommand(configCmd)
}
