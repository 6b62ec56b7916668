// Package prompts renders the instructions and inputs handed to the agents.
package prompts

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{"toYaml": toYAML}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Instructions is the data of the system prompts.
type Instructions struct {
	Tools  []string
	Schema string
}

type Request struct {
	Text       string
	References []string
}

type Directive struct {
	Summary string
	Steps   []string
	Context map[string]any
}

func PlannerInstructions(data Instructions) (string, error) {
	return render("planner.tmpl", data)
}

func ExecutorInstructions(data Instructions) (string, error) {
	return render("executor.tmpl", data)
}

// UserRequest renders the planner input.
func UserRequest(data Request) (string, error) {
	return render("request.tmpl", data)
}

// ExecutorInput renders a directive as the executor input.
func ExecutorInput(data Directive) (string, error) {
	return render("directive.tmpl", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "render %s", name)
	}
	return buf.String(), nil
}

func toYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
