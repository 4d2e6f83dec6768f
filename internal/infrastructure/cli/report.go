package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/report"
)

var (
	reportMarkdown bool
	reportCopy     bool
	reportOutput   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a full report for the last analysis",
	Long: `Print a complete report for the most recent analysis: stats, the
overall score, each criterion with its justification and recommendations,
and the overall analysis. --copy puts the formatted model response on the
clipboard instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		saved, err := services.Workspace.Repo.LoadLastResult()
		if err != nil {
			return MapError(err)
		}

		if reportCopy {
			ack, err := report.Copy(saved.Result, services.Clipboard)
			if ack != "" {
				fmt.Fprintln(cmd.OutOrStdout(), ack)
			}
			return MapError(err)
		}

		doc := report.Document(saved.Result, rubric.New(saved.Rubric...), report.Options{
			PRURL:       saved.PRURL,
			FilePath:    saved.FilePath,
			StudentName: saved.StudentName,
			Markdown:    reportMarkdown,
		})
		if reportOutput != "" {
			if err := os.WriteFile(reportOutput, []byte(doc), 0600); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportOutput)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), doc)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "Render as Markdown")
	reportCmd.Flags().BoolVar(&reportCopy, "copy", false, "Copy the formatted analysis to the clipboard")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to a file")
	RootCmd.AddCommand(reportCmd)
}
