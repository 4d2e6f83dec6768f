package mcp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

type stubAnalyzer struct {
	result *analysis.Result
	err    error
	last   analysis.Request
	file   analysis.FileRequest
}

func (s *stubAnalyzer) AnalyzePR(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	s.last = req
	return s.result, s.err
}

func (s *stubAnalyzer) AnalyzePRFile(_ context.Context, req analysis.FileRequest) (*analysis.Result, error) {
	s.file = req
	return s.result, s.err
}

func sampleResult() *analysis.Result {
	score := 62.0
	return &analysis.Result{
		Score:      &score,
		TotalFiles: 3,
		Additions:  40,
		Deletions:  5,
		CriteriaScores: []analysis.CriterionScore{
			{Criterion: "Code Quality", Score: 20, Weight: 25, Justification: "Readable."},
		},
		ClaudeResponse: analysis.ModelResponse{
			Content: "Code Quality (80%)\nJustification: Readable. Recommendations: Add tests.",
		},
	}
}

func newTestServer(t *testing.T, analyzer *stubAnalyzer) *Server {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvTimeout, config.EnvLogLevel, config.EnvRubric} {
		t.Setenv(k, "")
	}
	s, err := NewServer(t.TempDir(), wiring.Options{LogWriter: &bytes.Buffer{}, Analyzer: analyzer})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func TestHandleAnalyzePR(t *testing.T) {
	stub := &stubAnalyzer{result: sampleResult()}
	s := newTestServer(t, stub)

	out, err := s.handleAnalyzePR(context.Background(), AnalyzePRArgs{PRURL: "https://github.com/o/r/pull/7"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	v, ok := out.(AnalysisView)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if v.PullRequest != "o/r#7" || v.Score != "62/75" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if len(v.Criteria) != 1 || v.Criteria[0].Score != "20/25" {
		t.Fatalf("unexpected criteria: %+v", v.Criteria)
	}
	if !strings.Contains(v.Report, "\n  \nJustification:") {
		t.Fatalf("report not formatted: %q", v.Report)
	}
	if len(stub.last.Rubric) != 3 {
		t.Fatalf("expected default rubric to be sent, got %d items", len(stub.last.Rubric))
	}

	last, err := s.handleLastResult(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("last result: %v", err)
	}
	if last.(AnalysisView).Score != "62/75" {
		t.Fatalf("unexpected saved view: %+v", last)
	}
}

func TestHandleAnalyzePRErrors(t *testing.T) {
	stub := &stubAnalyzer{err: &client.BackendError{Status: 400, Message: "Invalid PR URL"}}
	s := newTestServer(t, stub)

	if _, err := s.handleAnalyzePR(context.Background(), AnalyzePRArgs{}); err == nil {
		t.Fatal("expected error for missing url")
	}
	_, err := s.handleAnalyzePR(context.Background(), AnalyzePRArgs{PRURL: "https://github.com/o/r/pull/1"})
	if err == nil || err.Error() != "Invalid PR URL" {
		t.Fatalf("expected backend message, got %v", err)
	}
	if _, err := s.handleAnalyzePRFile(context.Background(), AnalyzeFileArgs{PRURL: "https://github.com/o/r/pull/1"}); err == nil {
		t.Fatal("expected error for missing file path")
	}
}

func TestHandleAnalyzePRFile(t *testing.T) {
	stub := &stubAnalyzer{result: sampleResult()}
	s := newTestServer(t, stub)

	out, err := s.handleAnalyzePRFile(context.Background(), AnalyzeFileArgs{
		PRURL:    "https://github.com/o/r/pull/7",
		FilePath: "main.go",
	})
	if err != nil {
		t.Fatalf("analyze file: %v", err)
	}
	if out.(AnalysisView).FilePath != "main.go" || stub.file.FilePath != "main.go" {
		t.Fatalf("file path not passed through: %+v", out)
	}
}

func TestHandleLastResultMissing(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{})
	if _, err := s.handleLastResult(context.Background(), struct{}{}); err == nil {
		t.Fatal("expected error without saved result")
	}
}

func TestHandleGetRubric(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{})
	out, err := s.handleGetRubric(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("get rubric: %v", err)
	}
	if out.(map[string]any)["total_weight"] != 75.0 {
		t.Fatalf("unexpected rubric: %+v", out)
	}
}

func TestHandleFormatAndExtract(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{})

	got, err := s.handleFormat(context.Background(), FormatArgs{Content: "a\n\n\n\nb"})
	if err != nil || got != "a\n\nb" {
		t.Fatalf("format = %q, %v", got, err)
	}

	out, err := s.handleExtractRepo(context.Background(), RepoArgs{URL: "https://github.com/acme/widgets/pull/12"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	m := out.(map[string]any)
	if m["owner"] != "acme" || m["repo"] != "widgets" || m["number"] != 12 {
		t.Fatalf("unexpected repo info: %v", m)
	}
	if _, err := s.handleExtractRepo(context.Background(), RepoArgs{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error for non-GitHub URL")
	}
}

func TestAnalysisErrMessages(t *testing.T) {
	if got := analysisErr(context.Canceled).Error(); got != "Request cancelled" {
		t.Fatalf("got %q", got)
	}
	if got := analysisErr(errors.New("boom")).Error(); got != "boom" {
		t.Fatalf("got %q", got)
	}
}

// gateAnalyzer holds every call until release is closed or the call's
// context ends.
type gateAnalyzer struct {
	started chan struct{}
	release chan struct{}
}

func (g *gateAnalyzer) AnalyzePR(ctx context.Context, _ analysis.Request) (*analysis.Result, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return sampleResult(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gateAnalyzer) AnalyzePRFile(ctx context.Context, _ analysis.FileRequest) (*analysis.Result, error) {
	return g.AnalyzePR(ctx, analysis.Request{})
}

func TestConcurrentAnalysesDoNotCancelEachOther(t *testing.T) {
	for _, k := range []string{config.EnvAPIURL, config.EnvTimeout, config.EnvLogLevel, config.EnvRubric} {
		t.Setenv(k, "")
	}
	gate := &gateAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	s, err := NewServer(t.TempDir(), wiring.Options{LogWriter: &bytes.Buffer{}, Analyzer: gate})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	errs := make(chan error, 2)
	go func() {
		_, err := s.handleAnalyzePR(context.Background(), AnalyzePRArgs{PRURL: "https://github.com/acme/widgets/pull/1"})
		errs <- err
	}()
	<-gate.started
	go func() {
		_, err := s.handleAnalyzePRFile(context.Background(), AnalyzeFileArgs{PRURL: "https://github.com/acme/widgets/pull/2", FilePath: "main.go"})
		errs <- err
	}()
	<-gate.started
	close(gate.release)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
}

func TestAnalyzeRejectsInvalidRubric(t *testing.T) {
	stub := &stubAnalyzer{result: sampleResult()}
	s := newTestServer(t, stub)
	bad := rubric.New(rubric.Item{Criterion: "", Weight: -40})
	if err := s.services.Workspace.SaveRubric("", bad); err != nil {
		t.Fatalf("save rubric: %v", err)
	}

	_, err := s.handleAnalyzePR(context.Background(), AnalyzePRArgs{PRURL: "https://github.com/acme/widgets/pull/7"})
	if err == nil || !strings.Contains(err.Error(), "Invalid rubric") {
		t.Fatalf("expected invalid rubric error, got %v", err)
	}
	_, err = s.handleAnalyzePRFile(context.Background(), AnalyzeFileArgs{PRURL: "https://github.com/acme/widgets/pull/7", FilePath: "main.go"})
	if err == nil || !strings.Contains(err.Error(), "criterion is required") {
		t.Fatalf("expected invalid rubric error, got %v", err)
	}
	if stub.last.PRURL != "" || stub.file.PRURL != "" {
		t.Fatal("invalid rubric must not be dispatched")
	}
}
