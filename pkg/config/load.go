package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "handoff"
	// ConfigName is looked up as handoff.yaml in the config paths.
	ConfigName = "handoff"
)

// NewViper reads the config file, if any, and wires environment lookup.
// An explicit configFile must exist, the default locations are optional.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.handoff")
		if xdg, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(xdg, "handoff"))
		}
	}

	err := v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// no config file, defaults and environment only
	} else if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	log.Debug().Str("config", v.ConfigFileUsed()).Msg("loaded configuration")
	return v, nil
}

// BindFlags lets flags given on the command line take precedence over the
// config file and the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	return errors.Wrap(v.BindPFlags(fs), "bind flags")
}

// SetDefaults registers every key so environment variables are seen by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workspace", d.Workspace)
	v.SetDefault("drafts-dir", d.DraftsDir)
	v.SetDefault("engine", d.Engine)
	v.SetDefault("script", d.Script)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.base-url", d.OpenAI.BaseURL)
	v.SetDefault("openai.api-key", d.OpenAI.APIKey)
	v.SetDefault("openai.max-tokens", d.OpenAI.MaxTokens)
	v.SetDefault("openai.structured-output", d.OpenAI.StructuredOutput)
	v.SetDefault("allow-local-endpoint", d.AllowLocalEndpoint)
	v.SetDefault("max-turns", d.MaxTurns)
	v.SetDefault("retry.max-attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial-backoff", d.Retry.InitialBackoff)
	v.SetDefault("retry.max-backoff", d.Retry.MaxBackoff)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
	v.SetDefault("call-timeout", d.CallTimeout)
	v.SetDefault("tool-timeout", d.ToolTimeout)
	v.SetDefault("run-timeout", d.RunTimeout)
	v.SetDefault("max-parallel-tools", d.MaxParallelTools)
	v.SetDefault("event-buffer", d.EventBuffer)
	v.SetDefault("partial-policy", d.PartialPolicy)
}

// Load decodes the settings held by v. It does not validate them.
func Load(v *viper.Viper) (*Settings, error) {
	s := Default()
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	return &s, nil
}
