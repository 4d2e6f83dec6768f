package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

// ErrMissingFunctionAnalysis indicates a Code Completion score that cannot be
// derived because the backend sent no function analysis.
var ErrMissingFunctionAnalysis = errors.New("code completion score needs function analysis")

// ScorePending is shown in place of an overall score the backend did not send.
const ScorePending = "Score pending"

// EffectiveScore returns the score to display for a criterion. Code
// Completion is recomputed from the completion percentage; every other
// criterion uses the backend's score as-is.
func EffectiveScore(cs CriterionScore, fa *FunctionAnalysis) (float64, error) {
	if cs.Criterion != rubric.CodeCompletion {
		return cs.Score, nil
	}
	if fa == nil {
		return 0, ErrMissingFunctionAnalysis
	}
	return fa.CompletionPercentage * cs.Weight / 100, nil
}

// CriterionSummary is one row of the rendered scorecard.
type CriterionSummary struct {
	CriterionScore
	// Effective is nil when the score cannot be computed.
	Effective  *float64
	Recomputed bool
}

// Summary holds the totals shown above the per-criterion breakdown.
type Summary struct {
	Score    *float64
	Total    float64
	Criteria []CriterionSummary
}

// Summarize builds the scorecard for a result. Total is the live sum of
// the rubric's weights.
func Summarize(result *Result, r rubric.Rubric) Summary {
	s := Summary{Score: result.Score, Total: r.TotalWeight()}
	for _, cs := range result.CriteriaScores {
		row := CriterionSummary{CriterionScore: cs, Recomputed: cs.Criterion == rubric.CodeCompletion}
		if v, err := EffectiveScore(cs, result.FunctionAnalysis); err == nil {
			row.Effective = &v
		}
		s.Criteria = append(s.Criteria, row)
	}
	return s
}

// ScoreText renders the overall score as "score/total".
func (s Summary) ScoreText() string {
	if s.Score == nil {
		return ScorePending
	}
	return fmt.Sprintf("%s/%s", FormatScore(*s.Score), FormatScore(s.Total))
}

// ScoreText renders the criterion score as "score/weight".
func (c CriterionSummary) ScoreText() string {
	if c.Effective == nil {
		return fmt.Sprintf("?/%s", FormatScore(c.Weight))
	}
	return fmt.Sprintf("%s/%s", FormatScore(*c.Effective), FormatScore(c.Weight))
}

// FormatScore renders a number rounded to two decimals without trailing zeros.
func FormatScore(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
