package directive

import (
	"encoding/json"
	"strings"

	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/pkg/errors"
)

var (
	// DirectiveSchema is the terminal schema of the planner.
	DirectiveSchema = schema.MustFor[directiveWire]("directive",
		"Final answer of the planner: what was found and whether actions are needed")
	// ReportSchema is the terminal schema of the executor.
	ReportSchema = schema.MustFor[reportWire]("execution_report",
		"Final answer of the executor: how carrying out the plan went")
)

// Decode validates raw against s and returns the typed terminal value.
func Decode(raw string, s *schema.Descriptor) (Terminal, error) {
	switch s {
	case DirectiveSchema:
		return DecodeDirective(raw)
	case ReportSchema:
		return DecodeReport(raw)
	case nil:
		return nil, errors.New("no terminal schema")
	default:
		return nil, errors.Errorf("no decoder for schema %s", s.Name)
	}
}

func DecodeDirective(raw string) (*Directive, error) {
	doc := []byte(unfence(raw))
	if err := DirectiveSchema.Validate(doc); err != nil {
		return nil, err
	}
	var w directiveWire
	if err := json.Unmarshal(doc, &w); err != nil {
		return nil, errors.Wrap(err, "decode directive")
	}

	var route Route
	if w.ExecRequired {
		ar, err := NewActionRequired(w.PlanSteps...)
		if err != nil {
			return nil, schema.NewViolation(DirectiveSchema.Name, "plan_steps",
				"non-empty array when exec_required is true", "[]", err.Error())
		}
		route = ar
	} else {
		route = NewNoActionNeeded(w.PlanSteps...)
	}
	return &Directive{Summary: w.Summary, Route: route, context: w.Context}, nil
}

func DecodeReport(raw string) (*ExecutionReport, error) {
	doc := []byte(unfence(raw))
	if err := ReportSchema.Validate(doc); err != nil {
		return nil, err
	}
	var w reportWire
	if err := json.Unmarshal(doc, &w); err != nil {
		return nil, errors.Wrap(err, "decode execution report")
	}
	return &ExecutionReport{ActionsTaken: w.ActionsTaken, FinalStatus: w.FinalStatus, Message: w.Message}, nil
}

func EncodeDirective(d *Directive) ([]byte, error) {
	if d == nil {
		return nil, errors.New("nil directive")
	}
	if d.ExecRequired() && len(d.PlanSteps()) == 0 {
		return nil, schema.NewViolation(DirectiveSchema.Name, "plan_steps",
			"non-empty array when exec_required is true", "[]", "")
	}
	return json.Marshal(d.wire())
}

func EncodeReport(r *ExecutionReport) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil execution report")
	}
	return json.Marshal(reportWire{ActionsTaken: r.ActionsTaken, FinalStatus: r.FinalStatus, Message: r.Message})
}

// LooksLikeObject reports whether free text is meant as a JSON object, after
// removing a surrounding code fence.
func LooksLikeObject(raw string) bool {
	s := unfence(raw)
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

// unfence strips whitespace and a single surrounding ``` or ```json fence.
// The content itself is never altered.
func unfence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}
