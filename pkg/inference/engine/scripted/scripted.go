// Package scripted replays completion responses from a YAML script. It backs
// offline demos and the tests of the runner and orchestrator.
package scripted

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/go-go-golems/handoff/pkg/inference/engine"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Failure kinds a step can simulate.
const (
	FailTransient = "transient"
	FailRequest   = "request"
	// FailHang blocks until the call context is done.
	FailHang = "hang"
)

type Call struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Arguments map[string]any `yaml:"arguments"`
}

// Step is one scripted response.
type Step struct {
	Text      string         `yaml:"text,omitempty"`
	ToolCalls []Call         `yaml:"tool_calls,omitempty"`
	Terminal  map[string]any `yaml:"terminal,omitempty"`
	Error     string         `yaml:"error,omitempty"`
	Delay     time.Duration  `yaml:"delay,omitempty"`
}

// Script holds the steps of each agent.
type Script struct {
	Planner  []Step `yaml:"planner"`
	Executor []Step `yaml:"executor"`
}

func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read script %s", path)
	}
	return Parse(b)
}

func Parse(b []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "parse script")
	}
	return &s, nil
}

// Engine returns a fresh replay engine for the steps of role.
func (s *Script) Engine(role turns.Role) *Engine {
	if role == turns.RoleExecutor {
		return New(s.Executor...)
	}
	return New(s.Planner...)
}

// Engine answers each Complete call with the next step.
type Engine struct {
	mu       sync.Mutex
	steps    []Step
	next     int
	requests []*engine.Request
}

func New(steps ...Step) *Engine {
	return &Engine{steps: steps}
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Complete(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	if e.next >= len(e.steps) {
		e.mu.Unlock()
		return nil, &engine.RequestError{Err: errors.Errorf("script exhausted after %d steps", len(e.steps))}
	}
	step := e.steps[e.next]
	e.next++
	e.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step.Delay):
		}
	}

	switch step.Error {
	case "":
	case FailTransient:
		return nil, &engine.TransientError{StatusCode: 503, Err: errors.New("scripted transient failure")}
	case FailRequest:
		return nil, &engine.RequestError{StatusCode: 400, Err: errors.New("scripted request failure")}
	case FailHang:
		<-ctx.Done()
		return nil, ctx.Err()
	default:
		return nil, errors.Errorf("unknown scripted error %q", step.Error)
	}

	resp := &engine.Response{Text: step.Text}
	for _, c := range step.ToolCalls {
		args, err := json.Marshal(orEmpty(c.Arguments))
		if err != nil {
			return nil, errors.Wrapf(err, "encode arguments of %s", c.Name)
		}
		resp.ToolCalls = append(resp.ToolCalls, tools.ToolCall{ID: c.ID, Name: c.Name, Arguments: args})
	}
	if step.Terminal != nil {
		b, err := json.Marshal(step.Terminal)
		if err != nil {
			return nil, errors.Wrap(err, "encode terminal payload")
		}
		resp.Structured = b
	}
	return resp, nil
}

// Calls is the number of Complete calls seen so far.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

// Requests returns the requests seen so far.
func (e *Engine) Requests() []*engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*engine.Request(nil), e.requests...)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
