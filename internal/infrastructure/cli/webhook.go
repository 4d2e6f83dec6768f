package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var webhookClear bool

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Inspect result webhooks",
	Long: `Webhooks receive an analysis.completed or analysis.file_completed event
after every successful analysis. Endpoints are configured under 'webhooks'
in .prscore/config.yaml.`,
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured webhook endpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(services.Config.Webhooks) == 0 {
			fmt.Fprintln(out, "No webhooks configured.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
			Headers("Name", "URL", "Events", "Enabled")
		for _, ep := range services.Config.Webhooks {
			events := "all"
			if len(ep.EventFilters) > 0 {
				events = strings.Join(ep.EventFilters, ", ")
			}
			t.Row(ep.Name, ep.URL, events, strconv.FormatBool(ep.Enabled))
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

var webhookFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Show deliveries that exhausted their retries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		entries, err := services.DeadLetters.ReadAll()
		if err != nil {
			return fmt.Errorf("read dead letters: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No failed deliveries.")
			return nil
		}
		for _, dl := range entries {
			fmt.Fprintf(out, "%s  %s  %s  %s (%d attempts)\n",
				dl.Timestamp.Format("2006-01-02 15:04:05"), dl.WebhookName, dl.EventType, dl.Error, dl.Attempts)
		}

		if webhookClear {
			if err := services.DeadLetters.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d failed deliveries.\n", len(entries))
		}
		return nil
	},
}

func init() {
	webhookFailedCmd.Flags().BoolVar(&webhookClear, "clear", false, "Remove the entries after printing them")
	webhookCmd.AddCommand(webhookListCmd, webhookFailedCmd)
	RootCmd.AddCommand(webhookCmd)
}
