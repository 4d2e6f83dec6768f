package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

const WorkspaceDir = ".prscore"
const RubricFile = "rubric.yaml"
const LastResultFile = "last_result.json"
const LogFile = "prscore.log"
const DeadLetterFile = "webhook_deadletters.jsonl"

var (
	// ErrNoRubric indicates the rubric file does not exist.
	ErrNoRubric = errors.New("no rubric file found")

	// ErrNoResult indicates no analysis has been saved yet.
	ErrNoResult = errors.New("no saved analysis found")
)

// rubricDocument is the on-disk rubric layout.
type rubricDocument struct {
	Criteria []rubric.Item `yaml:"criteria"`
}

// SavedResult is the last analysis along with what produced it.
type SavedResult struct {
	PRURL       string           `json:"prUrl"`
	FilePath    string           `json:"filePath,omitempty"`
	StudentName string           `json:"studentName,omitempty"`
	Rubric      []rubric.Item    `json:"rubric"`
	SavedAt     time.Time        `json:"savedAt"`
	Result      *analysis.Result `json:"result"`
}

type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// ResolvePath ensures the path is within the .prscore directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, WorkspaceDir)
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	path := filepath.Join(r.root, WorkspaceDir)
	// G301: Use 0700 for directories
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", WorkspaceDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(r.root, WorkspaceDir))
	return err == nil
}

// DefaultRubricPath is the rubric location used when none is configured.
func (r *FilesystemRepository) DefaultRubricPath() string {
	return filepath.Join(r.root, WorkspaceDir, RubricFile)
}

// LoadRubric reads a rubric file. Relative paths are resolved against the root.
func (r *FilesystemRepository) LoadRubric(path string) (rubric.Rubric, error) {
	path = r.abs(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return rubric.Rubric{}, fmt.Errorf("%w: %s", ErrNoRubric, path)
	}

	retryer := retry.New[rubric.Rubric](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) (rubric.Rubric, error) {
		// #nosec G304 -- rubric path is chosen by the local user
		data, err := os.ReadFile(path)
		if err != nil {
			return rubric.Rubric{}, fmt.Errorf("failed to read rubric file: %w", err)
		}

		var doc rubricDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return rubric.Rubric{}, fmt.Errorf("failed to unmarshal rubric: %w", err)
		}
		return rubric.New(doc.Criteria...), nil
	})
}

// SaveRubric writes r to path, creating parent directories as needed.
func (r *FilesystemRepository) SaveRubric(path string, rb rubric.Rubric) error {
	path = r.abs(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create rubric directory: %w", err)
	}

	data, err := yaml.Marshal(rubricDocument{Criteria: rb.Items()})
	if err != nil {
		return fmt.Errorf("failed to marshal rubric: %w", err)
	}

	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

func (r *FilesystemRepository) SaveLastResult(saved *SavedResult) error {
	if saved == nil || saved.Result == nil {
		return fmt.Errorf("saved result is empty")
	}
	if err := r.Initialize(); err != nil {
		return err
	}
	path, err := r.ResolvePath(LastResultFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

func (r *FilesystemRepository) LoadLastResult() (*SavedResult, error) {
	path, err := r.ResolvePath(LastResultFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoResult
	}

	retryer := retry.New[*SavedResult](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) (*SavedResult, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read saved result: %w", err)
		}

		var saved SavedResult
		if err := json.Unmarshal(data, &saved); err != nil {
			return nil, fmt.Errorf("failed to unmarshal saved result: %w", err)
		}
		return &saved, nil
	})
}

func (r *FilesystemRepository) abs(path string) string {
	if path == "" {
		return r.DefaultRubricPath()
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.root, path)
}
