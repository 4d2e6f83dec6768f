package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/prurl"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	scoreStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	bulletStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

type renderOptions struct {
	PRURL       string
	FilePath    string
	StudentName string
}

// renderResult writes the scorecard for a result to w.
func renderResult(w io.Writer, result *analysis.Result, r rubric.Rubric, opts renderOptions) {
	summary := analysis.Summarize(result, r)

	title := "Pull Request Analysis"
	if ref, err := prurl.ParsePullRequest(opts.PRURL); err == nil {
		title = "Pull Request Analysis: " + ref.String()
	}
	fmt.Fprintln(w, reportTitleStyle.Render(title))
	fmt.Fprintln(w)

	if opts.StudentName != "" {
		renderField(w, "Student", opts.StudentName)
	}
	if opts.FilePath != "" {
		renderField(w, "File", opts.FilePath)
	}
	renderField(w, "Files changed", fmt.Sprintf("%d (+%d / -%d)", result.TotalFiles, result.Additions, result.Deletions))
	if fa := result.FunctionAnalysis; fa != nil {
		renderField(w, "Functions implemented", fmt.Sprintf("%d of %d (%s%%)",
			fa.ImplementedFunctions, fa.TotalFunctions, analysis.FormatScore(fa.CompletionPercentage)))
	}

	overall := summary.ScoreText()
	if summary.Score == nil {
		renderField(w, "Overall score", pendingStyle.Render(overall))
	} else {
		renderField(w, "Overall score", scoreStyle.Render(overall))
	}

	if len(summary.Criteria) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, criteriaTable(summary.Criteria))
		for _, c := range summary.Criteria {
			if c.Recomputed {
				fmt.Fprintln(w, labelStyle.Render("* scored from function analysis"))
				break
			}
		}

		for _, c := range summary.Criteria {
			if c.Justification == "" && len(c.Recommendations) == 0 {
				continue
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("%s: %s", c.Criterion, c.ScoreText())))
			if c.Justification != "" {
				fmt.Fprintln(w, c.Justification)
			}
			for _, rec := range c.Recommendations {
				fmt.Fprintf(w, "%s %s\n", bulletStyle.Render("•"), rec)
			}
		}
	}

	if text := strings.TrimSpace(result.ClaudeResponse.OverallAnalysis); text != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("Overall Analysis"))
		fmt.Fprintln(w, text)
	}

	if sections := analysis.Sections(result.ClaudeResponse.Content); len(sections) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("Analysis Details"))
		for _, s := range sections {
			fmt.Fprintln(w)
			fmt.Fprintln(w, labelStyle.Render(s.Title))
			fmt.Fprintln(w, s.Body)
		}
	}
}

func renderField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(name+":"), value)
}

func criteriaTable(rows []analysis.CriterionSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Criterion", "Score", "Weight").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})

	for _, c := range rows {
		score := "?"
		if c.Effective != nil {
			score = analysis.FormatScore(*c.Effective)
		}
		if c.Recomputed {
			score += " *"
		}
		t.Row(c.Criterion, score, analysis.FormatScore(c.Weight))
	}
	return t.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
