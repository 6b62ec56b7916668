package fstools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsafePath = errors.New("unsafe path")

// Workspace confines every file operation to one directory using os.Root,
// which also refuses symlinks that point outside of it.
type Workspace struct {
	dir  string
	root *os.Root
}

func OpenWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve workspace %s", dir)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "open workspace %s", abs)
	}
	return &Workspace{dir: abs, root: root}, nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) Close() error {
	return w.root.Close()
}

// clean turns a model-supplied path into a path relative to the workspace.
func clean(rel string) (string, error) {
	if rel == "" {
		return ".", nil
	}
	if filepath.IsAbs(rel) {
		return "", errors.Wrapf(ErrUnsafePath, "absolute path %s is not allowed", rel)
	}
	c := filepath.Clean(rel)
	if c == ".." || strings.HasPrefix(c, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrUnsafePath, "path %s escapes the workspace", rel)
	}
	return c, nil
}

// mkdirAll creates dir and its parents inside the workspace.
func (w *Workspace) mkdirAll(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	current := ""
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		err := w.root.Mkdir(current, 0o755)
		if err != nil && !errors.Is(err, os.ErrExist) {
			return errors.Wrapf(err, "create directory %s", current)
		}
	}
	return nil
}

func (w *Workspace) exists(rel string) bool {
	_, err := w.root.Stat(rel)
	return err == nil
}
