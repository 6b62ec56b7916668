package directive

import (
	"testing"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sevenFiles = `{
  "summary": "7 documents in /docs",
  "plan_steps": ["summarize each file", "draft the weekly digest"],
  "exec_required": true,
  "context": {"file_count": 7, "files": ["a.md", "b.md"]}
}`

func TestDecodeDirectiveActionRequired(t *testing.T) {
	d, err := DecodeDirective(sevenFiles)
	require.NoError(t, err)

	assert.True(t, d.ExecRequired())
	_, ok := d.Route.(ActionRequired)
	assert.True(t, ok)
	assert.Equal(t, []string{"summarize each file", "draft the weekly digest"}, d.PlanSteps())
	assert.Equal(t, float64(7), d.Context()["file_count"])
}

func TestDirectiveRoundTrip(t *testing.T) {
	inputs := []string{
		sevenFiles,
		`{"summary":"only 2 files","plan_steps":[],"exec_required":false,"context":{}}`,
		`{"summary":"nothing","plan_steps":["looked at /docs"],"exec_required":false,"context":{"nested":{"k":[1,2]}}}`,
	}
	for _, in := range inputs {
		d, err := DecodeDirective(in)
		require.NoError(t, err)
		b, err := EncodeDirective(d)
		require.NoError(t, err)
		again, err := DecodeDirective(string(b))
		require.NoError(t, err)
		assert.Equal(t, d, again)
	}
}

func TestDirectiveContextIsCopied(t *testing.T) {
	d, err := DecodeDirective(sevenFiles)
	require.NoError(t, err)

	ctx := d.Context()
	ctx["file_count"] = 1
	ctx["files"].([]any)[0] = "changed"

	assert.Equal(t, float64(7), d.Context()["file_count"])
	assert.Equal(t, "a.md", d.Context()["files"].([]any)[0])
}

func TestDecodeMissingFieldNamesIt(t *testing.T) {
	for _, field := range []string{"summary", "plan_steps", "exec_required", "context"} {
		doc := map[string]string{
			"summary":       `"s"`,
			"plan_steps":    `["a"]`,
			"exec_required": `true`,
			"context":       `{}`,
		}
		delete(doc, field)
		raw := "{"
		first := true
		for k, v := range doc {
			if !first {
				raw += ","
			}
			first = false
			raw += `"` + k + `":` + v
		}
		raw += "}"

		_, err := DecodeDirective(raw)
		sv, ok := schema.AsViolation(err)
		require.True(t, ok, field)
		assert.Equal(t, field, sv.Path)
	}
}

func TestDecodeRejectsStringBoolean(t *testing.T) {
	_, err := DecodeDirective(`{"summary":"s","plan_steps":["a"],"exec_required":"true","context":{}}`)
	sv, ok := schema.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "exec_required", sv.Path)
	assert.Equal(t, "boolean", sv.Expected)
	assert.Equal(t, "string", sv.Given)
}

func TestDecodeIgnoresExtraFields(t *testing.T) {
	d, err := DecodeDirective(`{"summary":"s","plan_steps":[],"exec_required":false,"context":{},"confidence":0.9}`)
	require.NoError(t, err)
	assert.False(t, d.ExecRequired())
}

func TestDecodeEmptyPlanWithExecRequired(t *testing.T) {
	_, err := DecodeDirective(`{"summary":"s","plan_steps":[],"exec_required":true,"context":{}}`)
	sv, ok := schema.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "plan_steps", sv.Path)
}

func TestDecodeStripsCodeFence(t *testing.T) {
	d, err := DecodeDirective("```json\n" + sevenFiles + "\n```")
	require.NoError(t, err)
	assert.True(t, d.ExecRequired())
	assert.True(t, LooksLikeObject("```json\n{}\n```"))
	assert.False(t, LooksLikeObject("Let me look at the files first."))
}

func TestDecodeDispatchesOnSchema(t *testing.T) {
	term, err := Decode(sevenFiles, DirectiveSchema)
	require.NoError(t, err)
	assert.IsType(t, &Directive{}, term)

	term, err = Decode(`{"final_status":"completed","message":"done"}`, ReportSchema)
	require.NoError(t, err)
	assert.IsType(t, &ExecutionReport{}, term)

	_, err = Decode("{}", schema.MustFor[struct{}]("other", ""))
	require.Error(t, err)
}

func TestDecodeReport(t *testing.T) {
	r, err := DecodeReport(`{"final_status":"partial","message":"one draft failed"}`)
	require.NoError(t, err)
	assert.Equal(t, FinalPartial, r.FinalStatus)

	_, err = DecodeReport(`{"final_status":"finished","message":"?"}`)
	sv, ok := schema.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "final_status", sv.Path)

	r.ActionsTaken = []tools.Result{{CallID: "c1", ToolName: "compose_draft", Status: tools.StatusSuccess}}
	b, err := EncodeReport(r)
	require.NoError(t, err)
	again, err := DecodeReport(string(b))
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestEncodeRejectsEmptyActionPlan(t *testing.T) {
	_, err := NewActionRequired()
	assert.ErrorIs(t, err, ErrEmptyPlan)

	_, err = EncodeDirective(NewDirective("s", ActionRequired{}, nil))
	_, ok := schema.AsViolation(err)
	assert.True(t, ok)
}

func TestDirectiveYAML(t *testing.T) {
	d, err := DecodeDirective(sevenFiles)
	require.NoError(t, err)
	out, err := yaml.Marshal(&RunResult{RunID: "r1", Directive: d, RunStatus: RunCompleted})
	require.NoError(t, err)
	assert.Contains(t, string(out), "exec_required: true")
	assert.Contains(t, string(out), "file_count: 7")
}
