package working_dir

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

type WorkingDir struct {
	root string
}

// NewWorkingDir resolves the given path to absolute form and ensures the
// directory and its temp subdirectory exist.
func NewWorkingDir(path string) (WorkingDir, error) {
	if path == "" {
		return WorkingDir{}, errors.New("Working dir path must not be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return WorkingDir{}, errors.Wrap(err, "Failed to convert working dir to absolute format")
	}

	workingDir := WorkingDir{root: absPath}

	if err := os.MkdirAll(workingDir.TempDir(), os.ModePerm); err != nil {
		return WorkingDir{}, errors.Wrap(err, "Failed to create working dir")
	}

	return workingDir, nil
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, "tmp")
}

func (w WorkingDir) String() string {
	return w.root
}
