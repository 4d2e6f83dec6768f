package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
)

const sampleBody = `{"score": 62, "totalFiles": 3, "additions": 40, "deletions": 5,
  "criteriaScores": [
    {"criterion": "Code Quality", "score": 20, "weight": 25, "justification": "Readable and well named.", "recommendations": ["Split the handler"]},
    {"criterion": "Best Practices", "score": 22, "weight": 25},
    {"criterion": "Code Completion", "score": 25, "weight": 25}
  ],
  "functionAnalysis": {"totalFunctions": 4, "implementedFunctions": 3, "completionPercentage": 75},
  "claudeResponse": {
    "content": "Code Quality (80%)\nJustification: Readable. Recommendations: Split the handler.\n\nSummary:\nSolid work overall.",
    "overallAnalysis": "Solid work overall."
  }}`

// fakeBackend records the requests it receives and answers with a fixed
// status and body.
type fakeBackend struct {
	*httptest.Server
	mu     sync.Mutex
	paths  []string
	bodies []map[string]any
}

func newFakeBackend(t *testing.T, status int, body string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		fb.mu.Lock()
		fb.paths = append(fb.paths, r.URL.Path)
		fb.bodies = append(fb.bodies, req)
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) lastRequest() (string, map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.paths) == 0 {
		return "", nil
	}
	return fb.paths[len(fb.paths)-1], fb.bodies[len(fb.bodies)-1]
}

// resetCLI clears flag-bound globals and the environment between runs.
func resetCLI(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvTimeout, config.EnvLogLevel, config.EnvRubric} {
		t.Setenv(k, "")
	}
	projectPath, apiURL, logLevel = "", "", "off"
	analyzeOpts = analyzeFlags{}
	rubricFile, rubricForce, rubricJSON = "", false, false
	reportMarkdown, reportCopy, reportOutput = false, false, ""
	webhookClear = false
	servicesOptions = wiring.Options{LogWriter: io.Discard}
	t.Cleanup(func() {
		servicesOptions = wiring.Options{}
		RootCmd.SetOut(nil)
		RootCmd.SetIn(nil)
	})
}

// run executes the root command with args against the workspace dir and
// returns what it printed.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(append(args, "--project", dir, "--log-level", "off"))
	err := RootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}
