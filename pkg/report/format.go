// Package report turns analysis results into text suitable for sharing.
package report

import (
	"regexp"
	"strings"
)

var criterionHeader = regexp.MustCompile(`\(\d+%\)`)

var sectionLabels = []string{"Justification:", "Recommendations:"}

// Format reflows the model's free-text response for the clipboard.
// Paragraphs are separated by blank lines. Paragraphs carrying a criterion
// header such as "Code Quality (80%)" have their lines indented by two
// spaces and each label moved onto its own line.
func Format(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if criterionHeader.MatchString(para) {
			para = strings.ReplaceAll(para, "\n", "\n  ")
			for _, label := range sectionLabels {
				para = strings.ReplaceAll(para, label, "\n"+label)
			}
		}
		out = append(out, para)
	}
	return strings.Join(out, "\n\n")
}
