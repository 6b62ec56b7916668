package tools

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathArgs struct {
	Path string `json:"path" jsonschema:"description=Path relative to the workspace"`
}

func readTool(t *testing.T, name string) *Tool {
	t.Helper()
	tool, err := New(name, "reads", ReadOnly, func(ctx context.Context, in pathArgs) (any, error) {
		return "content of " + in.Path, nil
	})
	require.NoError(t, err)
	return tool
}

func writeTool(t *testing.T, name string) *Tool {
	t.Helper()
	tool, err := New(name, "writes", SideEffecting, func(ctx context.Context, in pathArgs) (any, error) {
		return "wrote " + in.Path, nil
	})
	require.NoError(t, err)
	return tool
}

func TestReadOnlyRegistryRejectsSideEffectingTools(t *testing.T) {
	_, err := NewReadOnlyRegistry(readTool(t, "read_file"), writeTool(t, "write_file"))
	require.Error(t, err)

	var cv *CapabilityViolationError
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, "write_file", cv.Tool)
	assert.Equal(t, SideEffecting, cv.Mutability)
	assert.Equal(t, ReadOnly, cv.Ceiling)
}

func TestExtendKeepsCeiling(t *testing.T) {
	ro, err := NewReadOnlyRegistry(readTool(t, "read_file"))
	require.NoError(t, err)

	_, err = ro.Extend(writeTool(t, "write_file"))
	require.Error(t, err)

	rw, err := NewRegistry(ro.List()...)
	require.NoError(t, err)
	rw, err = rw.Extend(writeTool(t, "write_file"))
	require.NoError(t, err)

	assert.Equal(t, []string{"read_file", "write_file"}, rw.Names())
	assert.Equal(t, 1, ro.Len(), "extending must not change the original")
	assert.True(t, ro.IsReadOnly())
	assert.False(t, rw.IsReadOnly())
	assert.Len(t, rw.WithMutability(SideEffecting), 1)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(readTool(t, "read_file"), readTool(t, "read_file"))
	require.Error(t, err)
}

func TestLookupUnknownTool(t *testing.T) {
	r, err := NewRegistry(readTool(t, "read_file"), readTool(t, "list_directory"))
	require.NoError(t, err)

	_, err = r.Lookup("delete_everything")
	var ut *UnknownToolError
	require.True(t, errors.As(err, &ut))
	assert.Equal(t, "delete_everything", ut.Name)
	assert.Equal(t, []string{"list_directory", "read_file"}, ut.Available)
}

func TestSchemaReflectsRequiredFields(t *testing.T) {
	tool := readTool(t, "read_file")
	assert.Equal(t, []string{"path"}, tool.Parameters.Properties())
	assert.Error(t, tool.Parameters.Validate([]byte(`{}`)))
	assert.NoError(t, tool.Parameters.Validate([]byte(`{"path":"a.txt","extra":1}`)))
}
