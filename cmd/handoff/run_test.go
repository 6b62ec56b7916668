package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/handoff/pkg/config"
	"github.com/go-go-golems/handoff/pkg/directive"
	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const draftScript = `
planner:
  - tool_calls:
      - id: p1
        name: list_directory
        arguments:
          path: docs
  - terminal:
      summary: one note needs a status mail
      plan_steps:
        - compose a status draft for ops
      exec_required: true
      context:
        files: [a.md]
executor:
  - tool_calls:
      - id: e1
        name: compose_draft
        arguments:
          to: [ops@example.com]
          subject: Status
          body: "All **good**."
  - terminal:
      final_status: completed
      message: draft composed
`

func scriptedSettings(t *testing.T) config.Settings {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "a.md"), []byte("# a\n"), 0o644))
	script := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte(draftScript), 0o644))

	s := config.Default()
	s.Workspace = dir
	s.Engine = config.EngineScripted
	s.Script = script
	require.NoError(t, s.Validate())
	return s
}

func TestRunWithScriptedEngine(t *testing.T) {
	s := scriptedSettings(t)
	eventsFile := filepath.Join(t.TempDir(), "events.jsonl")

	result, err := run(context.Background(), s, orchestrator.UserRequest{Text: "mail ops about the notes"}, eventsFile, false)
	require.NoError(t, err)
	assert.Equal(t, directive.RunCompleted, result.RunStatus)
	require.NotNil(t, result.ExecutionReport)
	require.Len(t, result.ExecutionReport.ActionsTaken, 1)
	assert.Equal(t, "compose_draft", result.ExecutionReport.ActionsTaken[0].ToolName)

	md, err := os.ReadFile(filepath.Join(s.Workspace, "drafts", "status.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "Subject: Status")
	html, err := os.ReadFile(filepath.Join(s.Workspace, "drafts", "status.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<strong>good</strong>")

	f, err := os.Open(eventsFile)
	require.NoError(t, err)
	defer f.Close()
	var kinds []events.Kind
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e events.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		assert.Equal(t, result.RunID, e.RunID)
		kinds = append(kinds, e.Kind)
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, events.KindRunStarted, kinds[0])
	assert.Equal(t, events.KindRunCompleted, kinds[len(kinds)-1])
	assert.Contains(t, kinds, events.KindToolInvoked)
}

func TestPrintValueYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printValue(&buf, "yaml", map[string]any{
		"run_status": "completed",
		"flag":       "true",
		"steps":      []string{"a", "b"},
	}))
	out := buf.String()
	assert.Contains(t, out, "run_status: completed")
	assert.Contains(t, out, `flag: "true"`)
	assert.Contains(t, out, "- a\n")
	assert.False(t, strings.Contains(out, "{"))

	assert.Error(t, printValue(&buf, "xml", 1))
}
