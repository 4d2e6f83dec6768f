package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	apiURL      string
	logLevel    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "prscore",
	Version: Version,
	Short:   "Grade GitHub pull requests against a weighted rubric",
	Long: `prscore sends a pull request and a grading rubric to an analysis
backend and shows the per-criterion scores, justifications and
recommendations it returns.

Edit the rubric with 'prscore rubric', run 'prscore analyze <pr-url>',
or open the interactive form with 'prscore tui'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	return 1
}

func printError(err error) {
	var cliErr *CLIError
	if errors.As(MapError(err), &cliErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Message)
		if cliErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func init() {
	RootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "Workspace directory (defaults to the current directory)")
	RootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Analysis backend base URL (overrides PRSCORE_API_URL)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
}
