package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/handoff/pkg/directive"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Default()
	assert.Equal(t, 10, d.MaxTurns)
	assert.Equal(t, 3, d.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, d.Retry.InitialBackoff)
	assert.Equal(t, 8*time.Second, d.Retry.MaxBackoff)
	assert.Equal(t, "partial", d.PartialPolicy)

	// the openai engine has no key by default
	assert.Error(t, d.Validate())
	d.OpenAI.APIKey = "sk-test"
	assert.NoError(t, d.Validate())

	d.OpenAI.BaseURL = "http://localhost:1234/v1"
	d.AllowLocalEndpoint = true
	assert.NoError(t, d.Validate())
}

func TestValidateRejectsBadLimits(t *testing.T) {
	base := Default()
	base.OpenAI.APIKey = "sk-test"

	for name, mutate := range map[string]func(*Settings){
		"max turns":      func(s *Settings) { s.MaxTurns = 0 },
		"attempts":       func(s *Settings) { s.Retry.MaxAttempts = -1 },
		"backoff order":  func(s *Settings) { s.Retry.MaxBackoff = time.Millisecond },
		"event buffer":   func(s *Settings) { s.EventBuffer = 0 },
		"partial policy": func(s *Settings) { s.PartialPolicy = "sometimes" },
		"engine":         func(s *Settings) { s.Engine = "carrier-pigeon" },
		"script":         func(s *Settings) { s.Engine = EngineScripted },
		"local endpoint": func(s *Settings) { s.OpenAI.BaseURL = "http://localhost:1234/v1" },
	} {
		s := base
		mutate(&s)
		assert.Error(t, s.Validate(), name)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "handoff.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
engine: scripted
script: demo.yaml
max-turns: 4
retry:
  max-attempts: 5
  initial-backoff: 100ms
tool-timeout: 2s
openai:
  model: gpt-test
`), 0o644))
	t.Setenv("HANDOFF_OPENAI_API_KEY", "sk-env")
	t.Setenv("HANDOFF_PARTIAL_POLICY", "completed")

	v, err := NewViper(file)
	require.NoError(t, err)
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, EngineScripted, s.Engine)
	assert.Equal(t, 4, s.MaxTurns)
	assert.Equal(t, 5, s.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, s.Retry.InitialBackoff)
	assert.Equal(t, 8*time.Second, s.Retry.MaxBackoff)
	assert.Equal(t, 2*time.Second, s.ToolTimeout)
	assert.Equal(t, "gpt-test", s.OpenAI.Model)
	assert.Equal(t, "sk-env", s.OpenAI.APIKey)
	assert.Equal(t, "completed", s.PartialPolicy)
	require.NoError(t, s.Validate())

	rc := s.RunnerConfig(turns.RoleExecutor, directive.ReportSchema)
	assert.Equal(t, 4, rc.MaxTurns)
	assert.Equal(t, 5, rc.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, rc.Tools.ExecutionTimeout)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("HANDOFF_MAX_TURNS", "6")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-turns", 10, "")
	fs.String("workspace", ".", "")
	require.NoError(t, fs.Parse([]string{"--max-turns", "3"}))

	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "an explicit config file must exist")

	v, err := NewViper("")
	require.NoError(t, err)
	require.NoError(t, BindFlags(v, fs))
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3, s.MaxTurns)
	// unchanged flags keep the registered default
	assert.Equal(t, ".", s.Workspace)
}
