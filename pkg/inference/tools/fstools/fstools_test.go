package fstools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	ws, err := OpenWorkspace(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestListDirectory(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, map[string]string{
		"b.md":         "b",
		"a.md":         "a",
		"notes.txt":    "n",
		"sub/inner.md": "i",
	})

	out, err := ws.ListDirectory(context.Background(), ListDirectoryArgs{Path: "."})
	require.NoError(t, err)
	res := out.(ListDirectoryResult)
	assert.Equal(t, []string{"a.md", "b.md", "notes.txt"}, res.Files)
	assert.Equal(t, []string{"sub"}, res.Directories)
	assert.Equal(t, 4, res.Count)

	out, err = ws.ListDirectory(context.Background(), ListDirectoryArgs{Path: ".", Pattern: "*.md"})
	require.NoError(t, err)
	res = out.(ListDirectoryResult)
	assert.Equal(t, []string{"a.md", "b.md"}, res.Files)
	assert.Empty(t, res.Directories)
}

func TestReadFileTruncates(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, map[string]string{"long.txt": strings.Repeat("x", 100)})

	out, err := ws.ReadFile(context.Background(), ReadFileArgs{Path: "long.txt", MaxBytes: 10})
	require.NoError(t, err)
	res := out.(ReadFileResult)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Content, 10)
	assert.Equal(t, int64(100), res.Size)

	out, err = ws.ReadFile(context.Background(), ReadFileArgs{Path: "long.txt"})
	require.NoError(t, err)
	assert.False(t, out.(ReadFileResult).Truncated)
}

func TestPathsCannotEscapeWorkspace(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, map[string]string{"a.txt": "a"})

	for _, p := range []string{"../secret", "/etc/passwd", "sub/../../x"} {
		_, err := ws.ReadFile(context.Background(), ReadFileArgs{Path: p})
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, ErrUnsafePath), p)
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, map[string]string{"a.txt": "old"})

	_, err := ws.WriteFile(context.Background(), WriteFileArgs{Path: "a.txt", Content: "new"})
	require.Error(t, err)

	out, err := ws.WriteFile(context.Background(), WriteFileArgs{Path: "a.txt", Content: "new", Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 3, out.(WriteFileResult).BytesWritten)

	out, err = ws.WriteFile(context.Background(), WriteFileArgs{Path: "out/deep/b.txt", Content: "hello"})
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(ws.Dir(), "out", "deep", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, filepath.Join("out", "deep", "b.txt"), out.(WriteFileResult).Path)
}

func TestComposeDraft(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, nil)
	drafts, err := NewDrafts(ws, "")
	require.NoError(t, err)

	args := ComposeDraftArgs{To: []string{"team@example.com"}, Subject: "Weekly Summary!", Body: "# Done\n\n- seven files"}
	out, err := drafts.Compose(context.Background(), args)
	require.NoError(t, err)
	res := out.(ComposeDraftResult)
	assert.Equal(t, filepath.Join("drafts", "weekly-summary.md"), res.Markdown)

	md, err := os.ReadFile(filepath.Join(ws.Dir(), res.Markdown))
	require.NoError(t, err)
	assert.Contains(t, string(md), "To: team@example.com")
	html, err := os.ReadFile(filepath.Join(ws.Dir(), res.HTML))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Done</h1>")

	out, err = drafts.Compose(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("drafts", "weekly-summary-2.md"), out.(ComposeDraftResult).Markdown)
}

func TestComposeDraftPartialEffect(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, map[string]string{"drafts/hello.html": "taken"})
	drafts, err := NewDrafts(ws, "drafts")
	require.NoError(t, err)

	_, err = drafts.Compose(context.Background(), ComposeDraftArgs{To: []string{"a@b.c"}, Subject: "hello", Body: "hi"})
	var pe *tools.PartialEffectError
	require.True(t, errors.As(err, &pe))
	assert.FileExists(t, filepath.Join(ws.Dir(), "drafts", "hello.md"))
}

func TestRegistriesAreCapabilityScoped(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t, map[string]string{"a.txt": "a"})
	drafts, err := NewDrafts(ws, "drafts")
	require.NoError(t, err)

	planner, err := NewPlannerRegistry(ws)
	require.NoError(t, err)
	assert.True(t, planner.IsReadOnly())
	assert.Empty(t, planner.WithMutability(tools.SideEffecting))

	executor, err := NewExecutorRegistry(ws, drafts)
	require.NoError(t, err)
	assert.Equal(t, []string{"list_directory", "read_file", "write_file", "compose_draft"}, executor.Names())

	d := tools.NewDispatcher(planner, tools.DefaultConfig(), events.NopEmitter())
	_, err = d.Invoke(context.Background(), tools.ToolCall{ID: "1", Name: "write_file", Arguments: json.RawMessage(`{"path":"x","content":"y"}`)})
	var ut *tools.UnknownToolError
	require.True(t, errors.As(err, &ut))

	res, err := d.Invoke(context.Background(), tools.ToolCall{ID: "2", Name: "read_file", Arguments: json.RawMessage(`{"path":"a.txt"}`)})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusSuccess, res.Status)
}
