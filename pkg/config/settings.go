package config

import (
	"time"

	"github.com/go-go-golems/handoff/pkg/inference/engine/openai"
	"github.com/go-go-golems/handoff/pkg/inference/runner"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/orchestrator"
	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/go-go-golems/handoff/pkg/security"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/pkg/errors"
)

const (
	EngineOpenAI   = "openai"
	EngineScripted = "scripted"
)

type RetrySettings struct {
	MaxAttempts    int           `mapstructure:"max-attempts" yaml:"max-attempts"`
	InitialBackoff time.Duration `mapstructure:"initial-backoff" yaml:"initial-backoff"`
	MaxBackoff     time.Duration `mapstructure:"max-backoff" yaml:"max-backoff"`
	Multiplier     float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// Settings is the complete configuration of a handoff process.
type Settings struct {
	Workspace        string          `mapstructure:"workspace" yaml:"workspace"`
	DraftsDir        string          `mapstructure:"drafts-dir" yaml:"drafts-dir"`
	Engine           string          `mapstructure:"engine" yaml:"engine"`
	Script           string          `mapstructure:"script" yaml:"script,omitempty"`
	OpenAI           openai.Settings `mapstructure:"openai" yaml:"openai"`

	// AllowLocalEndpoint accepts an openai base URL on a local network.
	AllowLocalEndpoint bool `mapstructure:"allow-local-endpoint" yaml:"allow-local-endpoint"`

	MaxTurns         int           `mapstructure:"max-turns" yaml:"max-turns"`
	Retry            RetrySettings `mapstructure:"retry" yaml:"retry"`
	CallTimeout      time.Duration `mapstructure:"call-timeout" yaml:"call-timeout"`
	ToolTimeout      time.Duration `mapstructure:"tool-timeout" yaml:"tool-timeout"`
	RunTimeout       time.Duration `mapstructure:"run-timeout" yaml:"run-timeout"`
	MaxParallelTools int           `mapstructure:"max-parallel-tools" yaml:"max-parallel-tools"`
	EventBuffer      int           `mapstructure:"event-buffer" yaml:"event-buffer"`
	PartialPolicy    string        `mapstructure:"partial-policy" yaml:"partial-policy"`
}

func Default() Settings {
	return Settings{
		Workspace: ".",
		DraftsDir: "drafts",
		Engine:    EngineOpenAI,
		OpenAI: openai.Settings{
			Model: openai.DefaultModel,
		},
		MaxTurns: runner.DefaultMaxTurns,
		Retry: RetrySettings{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     8 * time.Second,
			Multiplier:     2,
		},
		CallTimeout:      60 * time.Second,
		ToolTimeout:      30 * time.Second,
		RunTimeout:       0,
		MaxParallelTools: 0,
		EventBuffer:      256,
		PartialPolicy:    string(orchestrator.PartialKeep),
	}
}

func (s Settings) Validate() error {
	switch {
	case s.MaxTurns <= 0:
		return errors.Errorf("max-turns must be positive, got %d", s.MaxTurns)
	case s.Retry.MaxAttempts <= 0:
		return errors.Errorf("retry.max-attempts must be positive, got %d", s.Retry.MaxAttempts)
	case s.Retry.InitialBackoff <= 0 || s.Retry.MaxBackoff < s.Retry.InitialBackoff:
		return errors.Errorf("retry backoff must satisfy 0 < initial-backoff <= max-backoff, got %s and %s",
			s.Retry.InitialBackoff, s.Retry.MaxBackoff)
	case s.Retry.Multiplier < 1:
		return errors.Errorf("retry.multiplier must be at least 1, got %g", s.Retry.Multiplier)
	case s.CallTimeout < 0 || s.ToolTimeout < 0 || s.RunTimeout < 0:
		return errors.New("timeouts cannot be negative")
	case s.EventBuffer <= 0:
		return errors.Errorf("event-buffer must be positive, got %d", s.EventBuffer)
	case s.MaxParallelTools < 0:
		return errors.Errorf("max-parallel-tools cannot be negative, got %d", s.MaxParallelTools)
	case !orchestrator.PartialPolicy(s.PartialPolicy).Valid():
		return errors.Errorf("unknown partial-policy %q", s.PartialPolicy)
	case s.Workspace == "":
		return errors.New("workspace cannot be empty")
	}
	switch s.Engine {
	case EngineOpenAI:
		if s.OpenAI.APIKey == "" {
			return errors.New("openai engine needs openai.api-key (or HANDOFF_OPENAI_API_KEY)")
		}
		policy := security.EndpointPolicy{AllowLocal: s.AllowLocalEndpoint}
		if err := security.CheckEndpoint(s.OpenAI.BaseURL, policy); err != nil {
			return errors.Wrap(err, "openai.base-url")
		}
	case EngineScripted:
		if s.Script == "" {
			return errors.New("scripted engine needs a script file")
		}
	default:
		return errors.Errorf("unknown engine %q", s.Engine)
	}
	return nil
}

func (s Settings) ToolsConfig() tools.Config {
	return tools.DefaultConfig().
		WithExecutionTimeout(s.ToolTimeout).
		WithMaxParallel(s.MaxParallelTools)
}

func (s Settings) RunnerConfig(role turns.Role, terminal *schema.Descriptor) runner.Config {
	retry := runner.DefaultRetryConfig()
	retry.MaxAttempts = s.Retry.MaxAttempts
	retry.InitialInterval = s.Retry.InitialBackoff
	retry.MaxInterval = s.Retry.MaxBackoff
	retry.Multiplier = s.Retry.Multiplier
	return runner.DefaultConfig(role, terminal).
		WithMaxTurns(s.MaxTurns).
		WithCallTimeout(s.CallTimeout).
		WithRetry(retry).
		WithTools(s.ToolsConfig())
}
