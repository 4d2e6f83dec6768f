package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/dispatch"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

var (
	// ErrFileRequestIncomplete indicates a file analysis without a PR URL or file path.
	ErrFileRequestIncomplete = errors.New("PR URL and file path are both required")

	// ErrSuperseded indicates a dispatch replaced by a newer one before it finished.
	ErrSuperseded = errors.New("analysis superseded by a newer request")
)

// Analyzer is the backend the service dispatches to.
type Analyzer interface {
	AnalyzePR(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	AnalyzePRFile(ctx context.Context, req analysis.FileRequest) (*analysis.Result, error)
}

// AnalysisService dispatches analysis requests and owns the loading, error
// and result state shown to the user. Starting a dispatch cancels the one
// in flight; only the newest dispatch may update state.
type AnalysisService struct {
	analyzer Analyzer
	logger   zerolog.Logger

	mu        sync.Mutex
	machine   *dispatch.Machine
	cancel    context.CancelFunc
	cancelGen uint64
}

func NewAnalysisService(analyzer Analyzer, logger zerolog.Logger) (*AnalysisService, error) {
	m, err := dispatch.NewMachine()
	if err != nil {
		return nil, err
	}
	return &AnalysisService{analyzer: analyzer, logger: logger, machine: m}, nil
}

// AnalyzeWholePR grades the whole pull request against r.
func (s *AnalysisService) AnalyzeWholePR(ctx context.Context, prURL string, r rubric.Rubric) (*analysis.Result, error) {
	req := analysis.Request{PRURL: prURL, Rubric: r.Items()}
	return s.run(ctx, dispatch.SlotPR, func(ctx context.Context) (*analysis.Result, error) {
		return s.analyzer.AnalyzePR(ctx, req)
	})
}

// AnalyzeFileInPR grades a single file of the pull request against r.
func (s *AnalysisService) AnalyzeFileInPR(ctx context.Context, prURL, filePath string, r rubric.Rubric) (*analysis.Result, error) {
	req := analysis.FileRequest{PRURL: prURL, FilePath: filePath, Rubric: r.Items()}
	if !req.Ready() {
		return nil, ErrFileRequestIncomplete
	}
	return s.run(ctx, dispatch.SlotFile, func(ctx context.Context) (*analysis.Result, error) {
		return s.analyzer.AnalyzePRFile(ctx, req)
	})
}

// Snapshot returns the current request state.
func (s *AnalysisService) Snapshot() dispatch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// Busy reports whether a dispatch is in flight.
func (s *AnalysisService) Busy() bool {
	return s.Snapshot().Loading
}

// Cancel aborts the in-flight dispatch, if any.
func (s *AnalysisService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *AnalysisService) run(ctx context.Context, slot dispatch.Slot, call func(context.Context) (*analysis.Result, error)) (result *analysis.Result, err error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.logger.Debug().Uint64("generation", s.cancelGen).Msg("superseding in-flight analysis")
	}
	ticket := s.machine.Begin(slot)
	s.cancel = cancel
	s.cancelGen = ticket.Generation
	s.mu.Unlock()

	log := s.logger.With().Uint64("generation", ticket.Generation).Str("slot", slot.String()).Logger()
	log.Info().Msg("analysis started")

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("analysis aborted: %v", r)
		}
		if result == nil && err == nil {
			err = errors.New("backend returned no analysis")
		}
		cancel()
		result, err = s.finish(ticket, result, err, log)
	}()

	return call(ctx)
}

// finish settles ticket exactly once and clears loading if it is current.
func (s *AnalysisService) finish(ticket dispatch.Ticket, result *analysis.Result, err error, log zerolog.Logger) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.Generation == s.cancelGen {
		s.cancel = nil
	}

	var applied bool
	if err != nil {
		applied = s.machine.Fail(ticket, client.UserMessage(err))
	} else {
		applied = s.machine.Succeed(ticket, result)
	}

	if !applied {
		log.Info().AnErr("cause", err).Msg("analysis superseded")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		return nil, ErrSuperseded
	}
	if err != nil {
		log.Warn().Err(err).Msg("analysis failed")
		return nil, err
	}
	log.Info().Int("criteria", len(result.CriteriaScores)).Msg("analysis completed")
	return result, nil
}
