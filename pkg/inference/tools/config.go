package tools

import "time"

// Config controls how a Dispatcher runs handlers.
type Config struct {
	// ExecutionTimeout bounds each handler invocation. Zero disables it.
	ExecutionTimeout time.Duration `json:"execution_timeout" yaml:"execution_timeout"`
	// MaxParallel caps concurrent calls from one response. Zero or less means
	// one worker per requested call.
	MaxParallel int `json:"max_parallel" yaml:"max_parallel"`
}

func DefaultConfig() Config {
	return Config{
		ExecutionTimeout: 30 * time.Second,
		MaxParallel:      0,
	}
}

func (c Config) WithExecutionTimeout(timeout time.Duration) Config {
	c.ExecutionTimeout = timeout
	return c
}

func (c Config) WithMaxParallel(maxParallel int) Config {
	c.MaxParallel = maxParallel
	return c
}

func (c Config) workers(calls int) int {
	if c.MaxParallel <= 0 || c.MaxParallel > calls {
		return calls
	}
	return c.MaxParallel
}
