package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRequest(t *testing.T) {
	out, err := UserRequest(Request{Text: "  summarize /docs \n", References: []string{"docs", "notes.md"}})
	require.NoError(t, err)
	assert.Equal(t, "summarize /docs\n\nReferenced inputs:\n- docs\n- notes.md\n", out)

	out, err = UserRequest(Request{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecutorInput(t *testing.T) {
	out, err := ExecutorInput(Directive{
		Summary: "7 files",
		Steps:   []string{"summarize", "draft digest"},
		Context: map[string]any{"file_count": 7},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "1. summarize\n2. draft digest")
	assert.Contains(t, out, "  file_count: 7")
}

func TestInstructionsListTools(t *testing.T) {
	out, err := PlannerInstructions(Instructions{Tools: []string{"list_directory", "read_file"}, Schema: "directive"})
	require.NoError(t, err)
	assert.Contains(t, out, "list_directory, read_file")
	assert.Contains(t, out, `"directive"`)

	out, err = ExecutorInstructions(Instructions{Tools: []string{"write_file"}, Schema: "execution_report"})
	require.NoError(t, err)
	assert.Contains(t, out, "write_file")
}
