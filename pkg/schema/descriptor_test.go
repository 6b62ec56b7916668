package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name    string         `json:"name" jsonschema:"description=Full name"`
	Active  bool           `json:"active"`
	Tags    []string       `json:"tags"`
	Address map[string]any `json:"address"`
	Note    string         `json:"note,omitempty"`
}

func TestForMarksNonOmitemptyFieldsRequired(t *testing.T) {
	d, err := For[person]("person", "a person")
	require.NoError(t, err)

	assert.Equal(t, []string{"active", "address", "name", "note", "tags"}, d.Properties())
	required, ok := d.Map()["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"name", "active", "tags", "address"}, required)
	_, hasVersion := d.Map()["$schema"]
	assert.False(t, hasVersion)
}

func TestValidateAcceptsExtraFields(t *testing.T) {
	d := MustFor[person]("person", "")
	err := d.Validate([]byte(`{"name":"ada","active":true,"tags":[],"address":{},"shoe_size":42}`))
	assert.NoError(t, err)
}

func TestValidateMissingField(t *testing.T) {
	d := MustFor[person]("person", "")
	err := d.Validate([]byte(`{"name":"ada","tags":[],"address":{}}`))
	sv, ok := AsViolation(err)
	require.True(t, ok, "expected SchemaViolation, got %v", err)
	assert.Equal(t, "active", sv.Path)
	assert.Equal(t, "present", sv.Expected)
	assert.Equal(t, "person", sv.Schema)
}

func TestValidateRejectsCoercibleStrings(t *testing.T) {
	d := MustFor[person]("person", "")
	err := d.Validate([]byte(`{"name":"ada","active":"true","tags":[],"address":{}}`))
	sv, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "active", sv.Path)
	assert.Equal(t, "boolean", sv.Expected)
	assert.Equal(t, "string", sv.Given)
}

func TestValidateNestedTypeMismatch(t *testing.T) {
	d := MustFor[person]("person", "")
	err := d.Validate([]byte(`{"name":"ada","active":true,"tags":["a",3],"address":{}}`))
	sv, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "tags.1", sv.Path)
	assert.Equal(t, "string", sv.Expected)
}

func TestValidateNotJSON(t *testing.T) {
	d := MustFor[person]("person", "")
	for _, doc := range []string{"", "   ", "sure, here is the plan"} {
		err := d.Validate([]byte(doc))
		sv, ok := AsViolation(err)
		require.True(t, ok, "doc %q", doc)
		assert.Equal(t, rootField, sv.Path)
	}
}

func TestFromJSONRequiresName(t *testing.T) {
	_, err := FromJSON("", "", []byte(`{"type":"object"}`))
	assert.Error(t, err)

	d, err := FromJSON("obj", "", []byte(`{"type":"object","properties":{"x":{"type":"integer"}},"required":["x"]}`))
	require.NoError(t, err)
	assert.NoError(t, d.Validate([]byte(`{"x": 3}`)))
	assert.Error(t, d.Validate([]byte(`{"x": "3"}`)))
}
