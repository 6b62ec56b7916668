package runner

import (
	"time"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/schema"
	"github.com/go-go-golems/handoff/pkg/turns"
)

const DefaultMaxTurns = 10

// RetryConfig bounds the retries of transient completion failures.
type RetryConfig struct {
	// MaxAttempts counts every call, the first one included.
	MaxAttempts         int           `json:"max_attempts" yaml:"max_attempts"`
	InitialInterval     time.Duration `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval         time.Duration `json:"max_interval" yaml:"max_interval"`
	Multiplier          float64       `json:"multiplier" yaml:"multiplier"`
	RandomizationFactor float64       `json:"randomization_factor" yaml:"randomization_factor"`
	// MaxElapsedTime caps the total time spent retrying. Zero disables it.
	MaxElapsedTime time.Duration `json:"max_elapsed_time" yaml:"max_elapsed_time"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:         3,
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         8 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.1,
	}
}

// Config describes one agent.
type Config struct {
	Role           turns.Role         `json:"role" yaml:"role"`
	Instructions   string             `json:"instructions" yaml:"instructions"`
	TerminalSchema *schema.Descriptor `json:"-" yaml:"-"`
	MaxTurns       int                `json:"max_turns" yaml:"max_turns"`
	// CallTimeout bounds each completion call. Zero disables it.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
	Retry       RetryConfig   `json:"retry" yaml:"retry"`
	Tools       tools.Config  `json:"tools" yaml:"tools"`
}

func DefaultConfig(role turns.Role, terminal *schema.Descriptor) Config {
	return Config{
		Role:           role,
		TerminalSchema: terminal,
		MaxTurns:       DefaultMaxTurns,
		CallTimeout:    60 * time.Second,
		Retry:          DefaultRetryConfig(),
		Tools:          tools.DefaultConfig(),
	}
}

func (c Config) WithInstructions(instructions string) Config {
	c.Instructions = instructions
	return c
}

func (c Config) WithMaxTurns(maxTurns int) Config {
	c.MaxTurns = maxTurns
	return c
}

func (c Config) WithCallTimeout(timeout time.Duration) Config {
	c.CallTimeout = timeout
	return c
}

func (c Config) WithRetry(retry RetryConfig) Config {
	c.Retry = retry
	return c
}

func (c Config) WithTools(cfg tools.Config) Config {
	c.Tools = cfg
	return c
}
