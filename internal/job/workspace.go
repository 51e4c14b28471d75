package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a run-scoped temporary directory. Every temporary artifact of
// one generation run lives under it, so concurrent runs can never
// cross-delete each other's files and cleanup is a single recursive remove
// on every exit path.
type Workspace struct {
	dir     string
	release sync.Once
}

// NewWorkspace creates the run's temporary directory under baseDir.
func NewWorkspace(baseDir, runID string) (*Workspace, error) {
	dir, err := os.MkdirTemp(baseDir, runID+"_*")
	if err != nil {
		return nil, fmt.Errorf("job: create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the path of a named file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Release removes the workspace and everything in it. Safe to call more
// than once.
func (w *Workspace) Release() error {
	var err error
	w.release.Do(func() {
		err = os.RemoveAll(w.dir)
	})
	return err
}
