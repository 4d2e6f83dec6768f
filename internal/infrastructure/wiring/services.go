package wiring

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/clipboard"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/logging"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/prscore/pkg/application"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/report"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

// AppServices exposes everything a front end needs for one workspace.
type AppServices struct {
	Workspace *Workspace
	Config    *config.Config
	Logger    zerolog.Logger
	Client    *client.Client
	Analysis  *application.AnalysisService
	Analyzer  application.Analyzer
	Clipboard report.Clipboard

	Notifier    *webhook.Notifier
	DeadLetters *webhook.DeadLetterStore
}

// Options tweak BuildAppServices. Zero values keep the configured behaviour.
type Options struct {
	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer
	// Console switches logs to the human readable format.
	Console bool
	// Override runs after the config is loaded, e.g. to apply CLI flags.
	Override func(*config.Config)
	// Analyzer replaces the HTTP backend client.
	Analyzer application.Analyzer
	// Clipboard replaces the system clipboard.
	Clipboard report.Clipboard
}

// BuildAppServices loads config for root and wires the client, analysis
// service and clipboard together.
func BuildAppServices(root string, opts Options) (*AppServices, error) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Override != nil {
		opts.Override(cfg)
	}

	logger := logging.NewLogger(cfg.LogLevel, opts.LogWriter)
	if opts.Console {
		logger = logging.NewConsoleLogger(cfg.LogLevel, opts.LogWriter)
	}

	c := client.New(cfg.APIURL,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logger),
	)

	var analyzer application.Analyzer = c
	if opts.Analyzer != nil {
		analyzer = opts.Analyzer
	}

	svc, err := application.NewAnalysisService(analyzer, logger)
	if err != nil {
		return nil, fmt.Errorf("build analysis service: %w", err)
	}

	cb := opts.Clipboard
	if cb == nil {
		cb = clipboard.System{}
	}

	deadLetters := webhook.NewDeadLetterStore(filepath.Join(root, storage.WorkspaceDir, storage.DeadLetterFile))

	return &AppServices{
		Workspace:   NewWorkspace(root, cfg),
		Config:      cfg,
		Logger:      logger,
		Client:      c,
		Analysis:    svc,
		Analyzer:    analyzer,
		Clipboard:   cb,
		Notifier:    webhook.NewNotifier(cfg.Webhooks, deadLetters, logger),
		DeadLetters: deadLetters,
	}, nil
}

// NewAnalysisService returns a dispatcher of its own over the same backend.
// Front ends serving several callers use one per request so that one
// caller never supersedes another.
func (s *AppServices) NewAnalysisService() (*application.AnalysisService, error) {
	return application.NewAnalysisService(s.Analyzer, s.Logger)
}

// Publish announces a finished analysis to the configured webhooks.
func (s *AppServices) Publish(ctx context.Context, prURL, filePath, student string, result *analysis.Result, r rubric.Rubric) {
	if result == nil || !s.Notifier.Active() {
		return
	}
	eventType, ev := webhook.NewAnalysisEvent(prURL, filePath, student, result, r)
	s.Notifier.Notify(ctx, eventType, ev)
}
