package analysis

import "strings"

// Section is a titled block of the model's free-text response.
type Section struct {
	Title string
	Body  string
}

// Sections splits content into blank-line separated blocks. The first line
// of a block is its title with the first colon removed; blocks without a
// body are skipped. A repeated title replaces the earlier body in place.
func Sections(content string) []Section {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var out []Section
	pos := map[string]int{}
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(block, "\n")
		if len(lines) < 2 || lines[0] == "" {
			continue
		}
		title := strings.Replace(lines[0], ":", "", 1)
		body := strings.Join(lines[1:], "\n")
		if i, ok := pos[title]; ok {
			out[i].Body = body
			continue
		}
		pos[title] = len(out)
		out = append(out, Section{Title: title, Body: body})
	}
	return out
}
