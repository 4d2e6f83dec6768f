package wiring

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/clipboard"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvTimeout, config.EnvLogLevel, config.EnvRubric} {
		t.Setenv(k, "")
	}
}

func TestBuildAppServicesDefaults(t *testing.T) {
	clearEnv(t)
	services, err := BuildAppServices(t.TempDir(), Options{LogWriter: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("build services failed: %v", err)
	}
	if services.Analysis == nil || services.Client == nil || services.Workspace == nil {
		t.Fatalf("expected non-nil services, got %+v", services)
	}
	if services.Client.BaseURL() != client.DefaultBaseURL {
		t.Fatalf("unexpected base url %q", services.Client.BaseURL())
	}
	if _, ok := services.Clipboard.(clipboard.System); !ok {
		t.Fatalf("expected system clipboard, got %T", services.Clipboard)
	}
}

func TestBuildAppServicesOverride(t *testing.T) {
	clearEnv(t)
	mem := &clipboard.Memory{}
	services, err := BuildAppServices(t.TempDir(), Options{
		LogWriter: &bytes.Buffer{},
		Clipboard: mem,
		Override: func(c *config.Config) {
			c.APIURL = "http://grader:8080"
		},
	})
	if err != nil {
		t.Fatalf("build services failed: %v", err)
	}
	if services.Client.BaseURL() != "http://grader:8080" {
		t.Fatalf("override not applied: %q", services.Client.BaseURL())
	}
	if services.Clipboard != mem {
		t.Fatal("expected injected clipboard")
	}
}

func TestBuildAppServicesInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvTimeout, "eventually")
	if _, err := BuildAppServices(t.TempDir(), Options{LogWriter: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected config error")
	}
}

func TestWorkspaceRubricFallsBackToDefault(t *testing.T) {
	ws := NewWorkspace(t.TempDir(), config.Defaults())
	r, err := ws.LoadRubric("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Len() != rubric.Default().Len() {
		t.Fatalf("expected default rubric, got %d items", r.Len())
	}
}

func TestWorkspaceRubricPath(t *testing.T) {
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.RubricFile = "grading/rubric.yaml"
	ws := NewWorkspace(root, cfg)

	want := filepath.Join(root, "grading", "rubric.yaml")
	if got := ws.RubricPath(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	custom := rubric.New(rubric.Item{Criterion: "Tests", Weight: 40})
	if err := ws.SaveRubric("", custom); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("rubric not written: %v", err)
	}
	loaded, err := ws.LoadRubric("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if it, _ := loaded.At(0); it.Criterion != "Tests" || it.Weight != 40 {
		t.Fatalf("unexpected item %+v", it)
	}
}

func TestBuildAppServicesWebhooks(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	services, err := BuildAppServices(dir, Options{LogWriter: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("build services failed: %v", err)
	}
	if services.Notifier.Active() {
		t.Fatal("notifier must be inactive without configured webhooks")
	}
	want := filepath.Join(dir, ".prscore", "webhook_deadletters.jsonl")
	if services.DeadLetters.Path() != want {
		t.Fatalf("dead letters at %s, want %s", services.DeadLetters.Path(), want)
	}
	// Publishing without endpoints is a no-op.
	services.Publish(context.Background(), "https://github.com/o/r/pull/1", "", "", &analysis.Result{}, rubric.Default())
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Fatalf("expected no dead letter file, got %v", err)
	}
}

func TestNewAnalysisServiceIsIndependent(t *testing.T) {
	clearEnv(t)
	services, err := BuildAppServices(t.TempDir(), Options{LogWriter: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("build services failed: %v", err)
	}
	if services.Analyzer != services.Client {
		t.Fatalf("expected the HTTP client as analyzer, got %T", services.Analyzer)
	}
	svc, err := services.NewAnalysisService()
	if err != nil {
		t.Fatalf("new analysis service: %v", err)
	}
	if svc == services.Analysis {
		t.Fatal("expected a separate dispatcher")
	}
}
