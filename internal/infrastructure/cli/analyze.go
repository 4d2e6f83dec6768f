package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/watch"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/prurl"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/report"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

type analyzeFlags struct {
	rubricFile string
	jsonOut    bool
	copy       bool
	watch      bool
	student    string
	output     string
	markdown   bool
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pr-url>",
	Short: "Analyze a whole pull request against the rubric",
	Example: `  prscore analyze https://github.com/acme/widgets/pull/42
  prscore analyze https://github.com/acme/widgets/pull/42 --student "Sam" --copy
  prscore analyze https://github.com/acme/widgets/pull/42 --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, analysisTarget{PRURL: args[0]})
	},
}

var analyzeFileCmd = &cobra.Command{
	Use:   "analyze-file <pr-url> <file-path>",
	Short: "Analyze one file of a pull request against the rubric",
	Example: `  prscore analyze-file https://github.com/acme/widgets/pull/42 src/app.js`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, analysisTarget{PRURL: args[0], FilePath: args[1], File: true})
	},
}

type analysisTarget struct {
	PRURL    string
	FilePath string
	File     bool
}

func runAnalyze(cmd *cobra.Command, target analysisTarget) error {
	if _, err := prurl.ParsePullRequest(target.PRURL); err != nil {
		return MapError(err)
	}
	services, err := loadServicesForCurrentDir()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rubricPath := analyzeOpts.rubricFile
	if rubricPath == "" {
		rubricPath = services.Workspace.RubricPath()
	}

	if err := analyzeOnce(ctx, cmd.OutOrStdout(), services, target, rubricPath); err != nil {
		if !analyzeOpts.watch {
			return MapError(err)
		}
		printError(err)
	}
	if !analyzeOpts.watch {
		return nil
	}

	return watchAndAnalyze(ctx, cmd.OutOrStdout(), services, target, rubricPath)
}

func analyzeOnce(ctx context.Context, out io.Writer, services *wiring.AppServices, target analysisTarget, rubricPath string) error {
	r, err := services.Workspace.LoadRubric(rubricPath)
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	var result *analysis.Result
	if target.File {
		result, err = services.Analysis.AnalyzeFileInPR(ctx, target.PRURL, target.FilePath, r)
	} else {
		result, err = services.Analysis.AnalyzeWholePR(ctx, target.PRURL, r)
	}
	if err != nil {
		return err
	}

	saved := &storage.SavedResult{
		PRURL:       target.PRURL,
		FilePath:    target.FilePath,
		StudentName: analyzeOpts.student,
		Rubric:      r.Items(),
		SavedAt:     time.Now().UTC(),
		Result:      result,
	}
	if err := services.Workspace.Repo.SaveLastResult(saved); err != nil {
		services.Logger.Warn().Err(err).Msg("failed to save analysis")
	}

	emitErr := emitResult(out, services, saved, r)
	services.Publish(ctx, target.PRURL, target.FilePath, analyzeOpts.student, result, r)
	return emitErr
}

func emitResult(out io.Writer, services *wiring.AppServices, saved *storage.SavedResult, r rubric.Rubric) error {
	if analyzeOpts.jsonOut {
		if err := writeJSON(out, saved.Result); err != nil {
			return err
		}
	} else {
		renderResult(out, saved.Result, r, renderOptions{
			PRURL:       saved.PRURL,
			FilePath:    saved.FilePath,
			StudentName: saved.StudentName,
		})
	}

	if analyzeOpts.output != "" {
		doc := report.Document(saved.Result, r, report.Options{
			PRURL:       saved.PRURL,
			FilePath:    saved.FilePath,
			StudentName: saved.StudentName,
			Markdown:    analyzeOpts.markdown,
		})
		if err := os.WriteFile(analyzeOpts.output, []byte(doc), 0600); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", analyzeOpts.output)
	}

	if analyzeOpts.copy {
		ack, err := report.Copy(saved.Result, services.Clipboard)
		if ack != "" {
			fmt.Fprintln(os.Stderr, ack)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func watchAndAnalyze(ctx context.Context, out io.Writer, services *wiring.AppServices, target analysisTarget, rubricPath string) error {
	changes := make(chan struct{}, 1)
	w, err := watch.NewFileWatcher(rubricPath, 0, func(watch.ChangeEvent) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Run(ctx) }()

	fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl+C to stop)\n", w.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-changes:
			services.Logger.Info().Str("rubric", w.Path()).Msg("rubric changed, re-running analysis")
			if err := analyzeOnce(ctx, out, services, target, rubricPath); err != nil {
				printError(err)
			}
		}
	}
}

func bindAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&analyzeOpts.rubricFile, "rubric", "", "Rubric YAML file (default .prscore/rubric.yaml)")
	cmd.Flags().BoolVar(&analyzeOpts.jsonOut, "json", false, "Print the raw analysis as JSON")
	cmd.Flags().BoolVar(&analyzeOpts.copy, "copy", false, "Copy the formatted analysis to the clipboard")
	cmd.Flags().BoolVar(&analyzeOpts.watch, "watch", false, "Re-run whenever the rubric file changes")
	cmd.Flags().StringVar(&analyzeOpts.student, "student", "", "Student name recorded with the result")
	cmd.Flags().StringVarP(&analyzeOpts.output, "output", "o", "", "Also write a full report to this file")
	cmd.Flags().BoolVar(&analyzeOpts.markdown, "markdown", false, "Write the --output report as Markdown")
}

func init() {
	bindAnalyzeFlags(analyzeCmd)
	bindAnalyzeFlags(analyzeFileCmd)
	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(analyzeFileCmd)
}
