package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/clipboard"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

const prURL = "https://github.com/acme/widgets/pull/7"

func TestAnalyzeCommandRendersResult(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	backend := newFakeBackend(t, http.StatusOK, sampleBody)

	out := mustRun(t, dir, "analyze", prURL, "--api-url", backend.URL, "--student", "Sam")

	for _, want := range []string{
		"Pull Request Analysis: acme/widgets#7",
		"Sam",
		"3 (+40 / -5)",
		"3 of 4 (75%)",
		"62/75",
		"18.75 *",
		"Readable and well named.",
		"Split the handler",
		"Solid work overall.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	path, body := backend.lastRequest()
	if path != client.AnalyzePRPath {
		t.Fatalf("unexpected path %s", path)
	}
	if body["prUrl"] != prURL {
		t.Fatalf("unexpected body %v", body)
	}
	if items, _ := body["rubric"].([]any); len(items) != 3 {
		t.Fatalf("expected the default rubric, got %v", body["rubric"])
	}

	saved, err := storage.NewFilesystemRepository(dir).LoadLastResult()
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if saved.PRURL != prURL || saved.StudentName != "Sam" || len(saved.Rubric) != 3 {
		t.Fatalf("unexpected saved result %+v", saved)
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	backend := newFakeBackend(t, http.StatusOK, sampleBody)

	out := mustRun(t, dir, "analyze", prURL, "--api-url", backend.URL, "--json")

	var res analysis.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Score == nil || *res.Score != 62 || len(res.CriteriaScores) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAnalyzeCommandBackendError(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	backend := newFakeBackend(t, http.StatusBadRequest, `{"error":"Invalid PR URL"}`)

	_, err := run(t, dir, "analyze", prURL, "--api-url", backend.URL)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %v", err)
	}
	if cliErr.Message != "Invalid PR URL" {
		t.Fatalf("unexpected message %q", cliErr.Message)
	}
	if _, err := storage.NewFilesystemRepository(dir).LoadLastResult(); !errors.Is(err, storage.ErrNoResult) {
		t.Fatalf("failed analysis must not be saved, got %v", err)
	}
}

func TestAnalyzeCommandRejectsNonPullRequest(t *testing.T) {
	resetCLI(t)
	backend := newFakeBackend(t, http.StatusOK, sampleBody)

	_, err := run(t, t.TempDir(), "analyze", "https://github.com/acme/widgets", "--api-url", backend.URL)
	if err == nil || !strings.Contains(err.Error(), "not a GitHub pull request URL") {
		t.Fatalf("expected pull request error, got %v", err)
	}
	if path, _ := backend.lastRequest(); path != "" {
		t.Fatal("request must not be sent for an invalid URL")
	}
}

func TestAnalyzeCommandInvalidRubric(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	backend := newFakeBackend(t, http.StatusOK, sampleBody)
	rubricPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(rubricPath, []byte("criteria:\n  - criterion: \"\"\n    weight: 10\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, dir, "analyze", prURL, "--api-url", backend.URL, "--rubric", rubricPath)
	if err == nil || !strings.Contains(err.Error(), "criterion is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAnalyzeFileCommand(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	backend := newFakeBackend(t, http.StatusOK, sampleBody)

	out := mustRun(t, dir, "analyze-file", prURL, "src/app.js", "--api-url", backend.URL)
	if !strings.Contains(out, "src/app.js") {
		t.Fatalf("output missing file path:\n%s", out)
	}

	path, body := backend.lastRequest()
	if path != client.AnalyzePRFilePath || body["filePath"] != "src/app.js" {
		t.Fatalf("unexpected request %s %v", path, body)
	}
}

func TestAnalyzeFileCommandRequiresPath(t *testing.T) {
	resetCLI(t)
	backend := newFakeBackend(t, http.StatusOK, sampleBody)

	_, err := run(t, t.TempDir(), "analyze-file", prURL, "  ", "--api-url", backend.URL)
	if err == nil || !strings.Contains(err.Error(), "file path are both required") {
		t.Fatalf("expected incomplete request error, got %v", err)
	}
	if path, _ := backend.lastRequest(); path != "" {
		t.Fatal("request must not be sent without a file path")
	}
}

func TestAnalyzeCommandCopyAndOutput(t *testing.T) {
	resetCLI(t)
	mem := &clipboard.Memory{}
	servicesOptions.Clipboard = mem
	dir := t.TempDir()
	backend := newFakeBackend(t, http.StatusOK, sampleBody)
	reportPath := filepath.Join(dir, "report.md")

	mustRun(t, dir, "analyze", prURL, "--api-url", backend.URL, "--copy", "-o", reportPath, "--markdown")

	if !strings.HasPrefix(mem.Text, "Code Quality (80%)\n  \nJustification:") {
		t.Fatalf("clipboard not formatted: %q", mem.Text)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Pull Request Analysis: acme/widgets#7") {
		t.Fatalf("unexpected report:\n%s", data)
	}
}

func TestAnalyzeCommandCopyFailure(t *testing.T) {
	resetCLI(t)
	servicesOptions.Clipboard = &clipboard.Memory{Err: &clipboard.ClipboardError{Err: clipboard.ErrUnsupported}}
	backend := newFakeBackend(t, http.StatusOK, sampleBody)

	_, err := run(t, t.TempDir(), "analyze", prURL, "--api-url", backend.URL, "--copy")
	var cliErr *CLIError
	if !errors.As(MapError(err), &cliErr) || cliErr.Message != "Failed to copy analysis" {
		t.Fatalf("expected copy failure, got %v", err)
	}
}
