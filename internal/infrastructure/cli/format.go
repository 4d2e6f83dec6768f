package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/prscore/pkg/report"
)

var formatCmd = &cobra.Command{
	Use:   "format [file|-]",
	Short: "Reflow analysis text the way --copy does",
	Long: `Read raw analysis text from a file, or from stdin when the argument is
"-" or missing, and print it reflowed for pasting into a review.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			// #nosec G304 -- file is chosen by the local user
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Format(string(data)))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(formatCmd)
}
