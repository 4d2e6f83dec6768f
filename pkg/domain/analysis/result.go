// Package analysis defines the requests sent to the analysis backend and the
// results it returns.
package analysis

import (
	"encoding/json"
	"strings"

	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

// Request asks for a whole pull request to be graded.
type Request struct {
	PRURL  string        `json:"prUrl"`
	Rubric []rubric.Item `json:"rubric"`
}

// FileRequest asks for a single file within a pull request to be graded.
type FileRequest struct {
	PRURL    string        `json:"prUrl"`
	FilePath string        `json:"filePath"`
	Rubric   []rubric.Item `json:"rubric"`
}

// Ready reports whether both the pull request URL and the file path are set.
func (r FileRequest) Ready() bool {
	return strings.TrimSpace(r.PRURL) != "" && strings.TrimSpace(r.FilePath) != ""
}

// Result is the backend's analysis of a pull request or a file within one.
type Result struct {
	Score            *float64          `json:"score,omitempty"`
	TotalFiles       int               `json:"totalFiles"`
	Additions        int               `json:"additions"`
	Deletions        int               `json:"deletions"`
	CriteriaScores   []CriterionScore  `json:"criteriaScores"`
	FunctionAnalysis *FunctionAnalysis `json:"functionAnalysis,omitempty"`
	ClaudeResponse   ModelResponse     `json:"claudeResponse"`

	// File-scoped analyses only.
	FilePath    string          `json:"filePath,omitempty"`
	Changes     json.RawMessage `json:"changes,omitempty"`
	FileContent string          `json:"fileContent,omitempty"`
}

// CriterionScore is the backend's verdict for one rubric criterion.
type CriterionScore struct {
	Criterion       string   `json:"criterion"`
	Score           float64  `json:"score"`
	Weight          float64  `json:"weight"`
	Justification   string   `json:"justification,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// FunctionAnalysis reports how many of the expected functions are implemented.
type FunctionAnalysis struct {
	TotalFunctions       int     `json:"totalFunctions"`
	ImplementedFunctions int     `json:"implementedFunctions"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

// ModelResponse carries the model's free-text assessment.
type ModelResponse struct {
	Content         string `json:"content"`
	OverallAnalysis string `json:"overallAnalysis,omitempty"`
}

// HasContent reports whether there is a free-text response to format or copy.
func (r *Result) HasContent() bool {
	return r != nil && strings.TrimSpace(r.ClaudeResponse.Content) != ""
}

// ByCriterion indexes scores, justifications and recommendations by criterion name.
type ByCriterion struct {
	Scores          map[string]float64
	Justifications  map[string]string
	Recommendations map[string][]string
}

// Index builds the per-criterion lookups. Later duplicates win.
func (r *Result) Index() ByCriterion {
	idx := ByCriterion{
		Scores:          make(map[string]float64, len(r.CriteriaScores)),
		Justifications:  make(map[string]string, len(r.CriteriaScores)),
		Recommendations: make(map[string][]string, len(r.CriteriaScores)),
	}
	for _, cs := range r.CriteriaScores {
		idx.Scores[cs.Criterion] = cs.Score
		idx.Justifications[cs.Criterion] = cs.Justification
		idx.Recommendations[cs.Criterion] = cs.Recommendations
	}
	return idx
}
