package fstools

import (
	"context"
	"io"
	"sort"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
)

const DefaultMaxBytes = 64 * 1024

type ListDirectoryArgs struct {
	Path    string `json:"path" jsonschema:"description=Directory relative to the workspace root, use . for the root"`
	Pattern string `json:"pattern,omitempty" jsonschema:"description=Optional glob pattern entries must match, e.g. *.md"`
}

type ListDirectoryResult struct {
	Path        string   `json:"path" yaml:"path"`
	Count       int      `json:"count" yaml:"count"`
	Files       []string `json:"files" yaml:"files"`
	Directories []string `json:"directories" yaml:"directories"`
}

type ReadFileArgs struct {
	Path     string `json:"path" jsonschema:"description=File relative to the workspace root"`
	MaxBytes int    `json:"max_bytes,omitempty" jsonschema:"description=Maximum number of bytes to return,minimum=1"`
}

type ReadFileResult struct {
	Path      string `json:"path" yaml:"path"`
	Content   string `json:"content" yaml:"content"`
	Size      int64  `json:"size" yaml:"size"`
	Truncated bool   `json:"truncated" yaml:"truncated"`
}

func (w *Workspace) ListDirectory(_ context.Context, args ListDirectoryArgs) (any, error) {
	dir, err := clean(args.Path)
	if err != nil {
		return nil, err
	}
	f, err := w.root.Open(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", args.Path)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", args.Path)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	ret := ListDirectoryResult{Path: dir, Files: []string{}, Directories: []string{}}
	for _, e := range entries {
		if args.Pattern != "" {
			ok, err := glob.Match(args.Pattern, e.Name())
			if err != nil {
				return nil, errors.Wrapf(err, "invalid pattern %s", args.Pattern)
			}
			if !ok {
				continue
			}
		}
		if e.IsDir() {
			ret.Directories = append(ret.Directories, e.Name())
		} else {
			ret.Files = append(ret.Files, e.Name())
		}
	}
	ret.Count = len(ret.Files) + len(ret.Directories)
	return ret, nil
}

func (w *Workspace) ReadFile(_ context.Context, args ReadFileArgs) (any, error) {
	p, err := clean(args.Path)
	if err != nil {
		return nil, err
	}
	limit := args.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	f, err := w.root.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", args.Path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", args.Path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory", args.Path)
	}

	buf, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", args.Path)
	}
	ret := ReadFileResult{Path: p, Size: info.Size()}
	if len(buf) > limit {
		buf = buf[:limit]
		ret.Truncated = true
	}
	ret.Content = string(buf)
	return ret, nil
}

// ReadOnlyTools returns the inspection tools handed to the planner.
func ReadOnlyTools(w *Workspace) ([]*tools.Tool, error) {
	list, err := tools.New("list_directory",
		"List the files and directories of a workspace directory, sorted by name.",
		tools.ReadOnly, w.ListDirectory)
	if err != nil {
		return nil, err
	}
	read, err := tools.New("read_file",
		"Read a text file from the workspace. Long files are truncated to max_bytes.",
		tools.ReadOnly, w.ReadFile)
	if err != nil {
		return nil, err
	}
	return []*tools.Tool{list, read}, nil
}
