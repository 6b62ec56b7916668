package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-go-golems/handoff/pkg/inference/engine"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

type Settings struct {
	Model       string   `mapstructure:"model" yaml:"model"`
	BaseURL     string   `mapstructure:"base-url" yaml:"base-url"`
	APIKey      string   `mapstructure:"api-key" yaml:"-"`
	Temperature *float32 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	MaxTokens   int      `mapstructure:"max-tokens" yaml:"max-tokens,omitempty"`
	// StructuredOutput asks the service to enforce the terminal schema.
	StructuredOutput bool `mapstructure:"structured-output" yaml:"structured-output"`
}

// Engine talks to any OpenAI compatible chat completion endpoint.
type Engine struct {
	client   *go_openai.Client
	settings Settings
}

func New(settings Settings) (*Engine, error) {
	if settings.APIKey == "" {
		return nil, errors.New("no API key for openai engine")
	}
	if settings.Model == "" {
		settings.Model = DefaultModel
	}
	config := go_openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		config.BaseURL = settings.BaseURL
	}
	return &Engine{
		client:   go_openai.NewClientWithConfig(config),
		settings: settings,
	}, nil
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Complete(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	creq, err := e.makeRequest(req)
	if err != nil {
		return nil, &engine.RequestError{Err: err}
	}

	log.Debug().
		Str("model", creq.Model).
		Str("agent", string(req.Agent)).
		Int("messages", len(creq.Messages)).
		Int("tools", len(creq.Tools)).
		Msg("openai chat completion")

	resp, err := e.client.CreateChatCompletion(ctx, *creq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &engine.TransientError{Err: errors.New("empty choices in completion response")}
	}

	choice := resp.Choices[0]
	ret := &engine.Response{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: engine.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := strings.TrimSpace(tc.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		ret.ToolCalls = append(ret.ToolCalls, tools.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	if len(ret.ToolCalls) == 0 && creq.ResponseFormat != nil {
		ret.Structured = json.RawMessage(choice.Message.Content)
		ret.Text = ""
	}
	return ret, nil
}

func (e *Engine) makeRequest(req *engine.Request) (*go_openai.ChatCompletionRequest, error) {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: req.Instructions})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case turns.MessageUser:
			msgs = append(msgs, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: m.Content})
		case turns.MessageAssistant:
			msg := go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, go_openai.ToolCall{
					ID:   tc.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			msgs = append(msgs, msg)
		case turns.MessageTool:
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		default:
			return nil, errors.Errorf("unknown message role %q", m.Role)
		}
	}

	creq := &go_openai.ChatCompletionRequest{
		Model:               e.settings.Model,
		Messages:            msgs,
		MaxCompletionTokens: e.settings.MaxTokens,
	}
	if e.settings.Temperature != nil {
		creq.Temperature = *e.settings.Temperature
	}

	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters.JSON(),
			},
		})
	}
	if len(creq.Tools) > 0 {
		creq.ToolChoice = "auto"
	}

	if e.settings.StructuredOutput && req.TerminalSchema != nil {
		creq.ResponseFormat = &go_openai.ChatCompletionResponseFormat{
			Type: go_openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &go_openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.TerminalSchema.Name,
				Description: req.TerminalSchema.Description,
				Schema:      req.TerminalSchema.JSON(),
				// extra fields are allowed, which strict mode forbids
				Strict: false,
			},
		}
	}
	return creq, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return engine.ClassifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return engine.ClassifyStatus(reqErr.HTTPStatusCode, err)
	}
	// transport level failures carry no status
	return &engine.TransientError{Err: err}
}
