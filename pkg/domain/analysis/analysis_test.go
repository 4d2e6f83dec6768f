package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

const validBody = `{
  "score": 62,
  "totalFiles": 3,
  "additions": 120,
  "deletions": 14,
  "criteriaScores": [
    {"criterion": "Code Quality", "score": 20, "weight": 25, "justification": "Readable", "recommendations": ["Split handler"]},
    {"criterion": "Code Completion", "score": 25, "weight": 25}
  ],
  "functionAnalysis": {"totalFunctions": 4, "implementedFunctions": 3, "completionPercentage": 75},
  "claudeResponse": {"content": "Code Quality (80%)\nJustification: Readable", "overallAnalysis": "Solid"}
}`

func TestDecodeValid(t *testing.T) {
	res, err := Decode([]byte(validBody))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Score == nil || *res.Score != 62 {
		t.Fatalf("unexpected score: %v", res.Score)
	}
	if len(res.CriteriaScores) != 2 || res.CriteriaScores[0].Recommendations[0] != "Split handler" {
		t.Fatalf("unexpected criteria: %+v", res.CriteriaScores)
	}
	if res.FunctionAnalysis == nil || res.FunctionAnalysis.CompletionPercentage != 75 {
		t.Fatalf("unexpected function analysis: %+v", res.FunctionAnalysis)
	}
	if !res.HasContent() {
		t.Fatal("expected content")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing criteria", `{"claudeResponse": {"content": "x"}}`},
		{"missing content", `{"criteriaScores": [], "claudeResponse": {}}`},
		{"criterion without score", `{"criteriaScores": [{"criterion": "A", "weight": 1}], "claudeResponse": {"content": "x"}}`},
		{"score as string", `{"score": "high", "criteriaScores": [], "claudeResponse": {"content": "x"}}`},
		{"not an object", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			var mre *MalformedResponseError
			if !errors.As(err, &mre) || len(mre.Problems) == 0 {
				t.Fatalf("expected problems listed, got %v", err)
			}
		})
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte("<html>"))
	if !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestDecodeAllowsMissingScore(t *testing.T) {
	res, err := Decode([]byte(`{"criteriaScores": [], "claudeResponse": {"content": ""}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Score != nil {
		t.Fatal("expected nil score")
	}
	if res.HasContent() {
		t.Fatal("expected no content")
	}
}

func TestEffectiveScore(t *testing.T) {
	fa := &FunctionAnalysis{CompletionPercentage: 80}

	got, err := EffectiveScore(CriterionScore{Criterion: "Code Completion", Score: 25, Weight: 25}, fa)
	if err != nil || got != 20 {
		t.Fatalf("got %v, %v; want 20", got, err)
	}

	got, err = EffectiveScore(CriterionScore{Criterion: "Code Quality", Score: 13, Weight: 25}, nil)
	if err != nil || got != 13 {
		t.Fatalf("got %v, %v; want 13", got, err)
	}

	if _, err := EffectiveScore(CriterionScore{Criterion: "Code Completion", Weight: 25}, nil); !errors.Is(err, ErrMissingFunctionAnalysis) {
		t.Fatalf("expected ErrMissingFunctionAnalysis, got %v", err)
	}

	// Only the exact label is special.
	got, _ = EffectiveScore(CriterionScore{Criterion: "code completion", Score: 9, Weight: 25}, fa)
	if got != 9 {
		t.Fatalf("got %v, want 9", got)
	}
}

func TestSummarize(t *testing.T) {
	res, err := Decode([]byte(validBody))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := Summarize(res, rubric.Default().Add())

	if got := s.ScoreText(); got != "62/75" {
		t.Fatalf("score text = %q", got)
	}
	if got := s.Criteria[1].ScoreText(); got != "18.75/25" {
		t.Fatalf("completion score text = %q", got)
	}
	if !s.Criteria[1].Recomputed || s.Criteria[0].Recomputed {
		t.Fatal("only Code Completion is recomputed")
	}

	res.Score = nil
	res.FunctionAnalysis = nil
	s = Summarize(res, rubric.Default())
	if s.ScoreText() != ScorePending {
		t.Fatalf("expected pending, got %q", s.ScoreText())
	}
	if s.Criteria[1].Effective != nil || s.Criteria[1].ScoreText() != "?/25" {
		t.Fatalf("expected unknown completion score, got %q", s.Criteria[1].ScoreText())
	}
}

func TestSections(t *testing.T) {
	content := "Summary:\nLooks good\nOverall\n\nLonely\n\nCode Quality (80%)\nJustification: ok\n\nSummary:\nReplaced"
	got := Sections(content)
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %+v", got)
	}
	if got[0].Title != "Summary" || got[0].Body != "Replaced" {
		t.Fatalf("unexpected first section: %+v", got[0])
	}
	if got[1].Title != "Code Quality (80%)" || !strings.HasPrefix(got[1].Body, "Justification") {
		t.Fatalf("unexpected second section: %+v", got[1])
	}
}

func TestIndex(t *testing.T) {
	res, _ := Decode([]byte(validBody))
	idx := res.Index()
	if idx.Scores["Code Quality"] != 20 || idx.Justifications["Code Quality"] != "Readable" {
		t.Fatalf("unexpected index: %+v", idx)
	}
	if len(idx.Recommendations["Code Quality"]) != 1 {
		t.Fatalf("unexpected recommendations: %+v", idx.Recommendations)
	}
}

func TestFileRequestReady(t *testing.T) {
	if (FileRequest{PRURL: "u"}).Ready() {
		t.Fatal("expected not ready without file path")
	}
	if (FileRequest{PRURL: " ", FilePath: "a.go"}).Ready() {
		t.Fatal("expected not ready with blank url")
	}
	if !(FileRequest{PRURL: "u", FilePath: "a.go"}).Ready() {
		t.Fatal("expected ready")
	}
}

func TestFormatScore(t *testing.T) {
	if got := FormatScore(16.666); got != "16.67" {
		t.Fatalf("got %q", got)
	}
	if got := FormatScore(25); got != "25" {
		t.Fatalf("got %q", got)
	}
}
