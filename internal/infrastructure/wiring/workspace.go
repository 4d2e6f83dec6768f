package wiring

import (
	"errors"
	"path/filepath"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

// Workspace bundles the repository with the config that locates the rubric.
type Workspace struct {
	Root   string
	Config *config.Config
	Repo   *storage.FilesystemRepository
}

func NewWorkspace(root string, cfg *config.Config) *Workspace {
	return &Workspace{
		Root:   root,
		Config: cfg,
		Repo:   storage.NewFilesystemRepository(root),
	}
}

// RubricPath is the configured rubric file, or the workspace default.
func (w *Workspace) RubricPath() string {
	if w.Config == nil || w.Config.RubricFile == "" {
		return w.Repo.DefaultRubricPath()
	}
	if filepath.IsAbs(w.Config.RubricFile) {
		return w.Config.RubricFile
	}
	return filepath.Join(w.Root, w.Config.RubricFile)
}

// LoadRubric reads path, or the configured rubric when path is empty. A
// missing file yields the default rubric.
func (w *Workspace) LoadRubric(path string) (rubric.Rubric, error) {
	if path == "" {
		path = w.RubricPath()
	}
	r, err := w.Repo.LoadRubric(path)
	if errors.Is(err, storage.ErrNoRubric) {
		return rubric.Default(), nil
	}
	return r, err
}

// SaveRubric writes to path, or the configured rubric when path is empty.
func (w *Workspace) SaveRubric(path string, r rubric.Rubric) error {
	if path == "" {
		path = w.RubricPath()
	}
	return w.Repo.SaveRubric(path, r)
}
