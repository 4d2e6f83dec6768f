// Package webhook posts analysis events to the endpoints listed in the
// workspace config.
package webhook

import (
	"time"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

// Event types.
const (
	EventAnalysisCompleted     = "analysis.completed"
	EventFileAnalysisCompleted = "analysis.file_completed"
)

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Prscore-Signature"

// Endpoint configures a single outgoing webhook.
type Endpoint struct {
	Name         string        `yaml:"name" json:"name"`
	URL          string        `yaml:"url" json:"url"`
	Secret       string        `yaml:"secret,omitempty" json:"secret,omitempty"`
	EventFilters []string      `yaml:"event_filters,omitempty" json:"event_filters,omitempty"` // empty = all events
	MaxRetries   int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryDelay   time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	Enabled      bool          `yaml:"enabled" json:"enabled"`
}

// Payload is the JSON body sent to webhook endpoints.
type Payload struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// AnalysisEvent describes a finished analysis.
type AnalysisEvent struct {
	PullRequest string           `json:"pull_request"`
	FilePath    string           `json:"file_path,omitempty"`
	StudentName string           `json:"student_name,omitempty"`
	Score       string           `json:"score"`
	Result      *analysis.Result `json:"result"`
}

// NewAnalysisEvent builds the event for result and returns its type.
func NewAnalysisEvent(prURL, filePath, student string, result *analysis.Result, r rubric.Rubric) (string, AnalysisEvent) {
	eventType := EventAnalysisCompleted
	if filePath != "" {
		eventType = EventFileAnalysisCompleted
	}
	return eventType, AnalysisEvent{
		PullRequest: prURL,
		FilePath:    filePath,
		StudentName: student,
		Score:       analysis.Summarize(result, r).ScoreText(),
		Result:      result,
	}
}

// DeadLetter records a delivery that failed every attempt.
type DeadLetter struct {
	Timestamp   time.Time `json:"timestamp"`
	WebhookName string    `json:"webhook_name"`
	URL         string    `json:"url"`
	EventType   string    `json:"event_type"`
	Payload     string    `json:"payload"`
	Error       string    `json:"error"`
	Attempts    int       `json:"attempts"`
}
