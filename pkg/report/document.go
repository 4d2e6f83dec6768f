package report

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/prurl"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

// Options controls Document rendering.
type Options struct {
	PRURL       string
	FilePath    string
	StudentName string
	Markdown    bool
}

// Document renders a complete report for a result: header, stats, overall
// score, per-criterion breakdown and the overall analysis.
func Document(result *analysis.Result, r rubric.Rubric, opts Options) string {
	w := &docWriter{markdown: opts.Markdown}
	summary := analysis.Summarize(result, r)

	title := "Pull Request Analysis"
	if ref, err := prurl.ParsePullRequest(opts.PRURL); err == nil {
		title = fmt.Sprintf("Pull Request Analysis: %s", ref)
	}
	w.heading(1, title)

	if opts.StudentName != "" {
		w.field("Student", opts.StudentName)
	}
	if opts.PRURL != "" {
		w.field("Pull request", opts.PRURL)
	}
	if opts.FilePath != "" {
		w.field("File", opts.FilePath)
	}
	w.field("Files changed", fmt.Sprintf("%d (+%d / -%d)", result.TotalFiles, result.Additions, result.Deletions))
	if fa := result.FunctionAnalysis; fa != nil {
		w.field("Functions implemented", fmt.Sprintf("%d of %d (%s%%)", fa.ImplementedFunctions, fa.TotalFunctions, analysis.FormatScore(fa.CompletionPercentage)))
	}
	w.field("Overall score", summary.ScoreText())

	if len(summary.Criteria) > 0 {
		w.heading(2, "Criteria")
		for _, c := range summary.Criteria {
			w.heading(3, fmt.Sprintf("%s: %s", c.Criterion, c.ScoreText()))
			if c.Justification != "" {
				w.paragraph(c.Justification)
			}
			if len(c.Recommendations) > 0 {
				w.line("Recommendations:")
				for _, rec := range c.Recommendations {
					w.line("- " + rec)
				}
				w.blank()
			}
		}
	}

	if overall := strings.TrimSpace(result.ClaudeResponse.OverallAnalysis); overall != "" {
		w.heading(2, "Overall Analysis")
		w.paragraph(overall)
	}

	return strings.TrimRight(w.b.String(), "\n") + "\n"
}

type docWriter struct {
	b        strings.Builder
	markdown bool
}

func (w *docWriter) heading(level int, text string) {
	if w.b.Len() > 0 {
		w.blank()
	}
	if w.markdown {
		w.line(strings.Repeat("#", level) + " " + text)
	} else {
		w.line(text)
		if level < 3 {
			underline := "="
			if level == 2 {
				underline = "-"
			}
			w.line(strings.Repeat(underline, len(text)))
		}
	}
}

func (w *docWriter) field(name, value string) {
	if w.markdown {
		w.line(fmt.Sprintf("- **%s:** %s", name, value))
		return
	}
	w.line(fmt.Sprintf("%s: %s", name, value))
}

func (w *docWriter) paragraph(text string) {
	w.line(text)
	w.blank()
}

func (w *docWriter) line(s string) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *docWriter) blank() {
	s := w.b.String()
	if strings.HasSuffix(s, "\n\n") {
		return
	}
	w.b.WriteByte('\n')
}
