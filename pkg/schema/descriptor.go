package schema

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

// Descriptor is a named, compiled JSON schema. Descriptors are immutable once
// built and can be shared between goroutines.
type Descriptor struct {
	Name        string
	Description string

	raw      []byte
	asMap    map[string]any
	compiled *gojsonschema.Schema
}

// For reflects T into a schema. Fields without `omitempty` are required,
// additional properties are accepted so newer models can add fields without
// breaking older decoders.
func For[T any](name, description string) (*Descriptor, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Anonymous:                 true,
	}
	var zero T
	s := reflector.Reflect(&zero)
	// gojsonschema only knows drafts up to 7, the 2020-12 marker would be ignored at best
	s.Version = ""
	s.ID = ""
	if s.Type == "" && s.Ref == "" {
		s.Type = "object"
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal schema %s", name)
	}
	return FromJSON(name, description, raw)
}

// MustFor is For for package-level schema variables.
func MustFor[T any](name, description string) *Descriptor {
	d, err := For[T](name, description)
	if err != nil {
		panic(err)
	}
	return d
}

// FromJSON compiles a literal JSON schema document.
func FromJSON(name, description string, raw []byte) (*Descriptor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("schema name cannot be empty")
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", name)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "schema %s is not a JSON object", name)
	}
	return &Descriptor{
		Name:        name,
		Description: description,
		raw:         append([]byte(nil), raw...),
		asMap:       m,
		compiled:    compiled,
	}, nil
}

// JSON returns the schema document.
func (d *Descriptor) JSON() json.RawMessage {
	return append(json.RawMessage(nil), d.raw...)
}

// Map returns a fresh map representation of the schema document, suitable for
// provider request payloads.
func (d *Descriptor) Map() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(d.raw, &m)
	return m
}

// Properties lists the top-level property names declared by the schema.
func (d *Descriptor) Properties() []string {
	props, _ := d.asMap["properties"].(map[string]any)
	ret := make([]string, 0, len(props))
	for k := range props {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// Validate checks doc against the schema. The returned error is a
// *SchemaViolation; no value is ever coerced, a string "true" does not
// satisfy a boolean field.
func (d *Descriptor) Validate(doc []byte) error {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return &SchemaViolation{Schema: d.Name, Path: rootField, Expected: "object", Given: "empty", Detail: "document is empty"}
	}
	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return &SchemaViolation{Schema: d.Name, Path: rootField, Expected: "json", Given: "text", Detail: err.Error()}
	}

	result, err := d.compiled.Validate(gojsonschema.NewGoLoader(probe))
	if err != nil {
		return errors.Wrapf(err, "validate against schema %s", d.Name)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, violationFromResultError(re))
	}
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Path < violations[j].Path
	})

	first := violations[0]
	return &SchemaViolation{
		Schema:     d.Name,
		Path:       first.Path,
		Expected:   first.Expected,
		Given:      first.Given,
		Detail:     first.Detail,
		Violations: violations,
	}
}

func violationFromResultError(re gojsonschema.ResultError) Violation {
	field := re.Field()
	details := re.Details()
	v := Violation{
		Path:   field,
		Detail: re.Description(),
	}

	switch re.Type() {
	case "required":
		prop, _ := details["property"].(string)
		v.Path = joinPath(field, prop)
		v.Expected = "present"
		v.Given = "missing"
	case "invalid_type":
		v.Expected = detailString(details, "expected")
		v.Given = detailString(details, "given")
	case "enum":
		v.Expected = "one of " + detailString(details, "allowed")
		v.Given = "other value"
	default:
		v.Expected = re.Type()
	}
	if v.Path == "" {
		v.Path = rootField
	}
	return v
}

func joinPath(parent, child string) string {
	if parent == "" || parent == rootField {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

func detailString(details gojsonschema.ErrorDetails, key string) string {
	v, ok := details[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
