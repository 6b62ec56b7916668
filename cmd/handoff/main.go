package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/handoff/pkg/config"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	v        *viper.Viper
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "handoff",
	Short: "handoff plans a request with read-only tools and hands side effects to an executor",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		v, err = config.NewViper(configFile)
		if err != nil {
			return err
		}
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		if err := initLogger(); err != nil {
			return err
		}
		settings, err = config.Load(v)
		return err
	},
	SilenceUsage: true,
}

func main() {
	initCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initCommands() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default is handoff.yaml in ., $HOME/.handoff or the user config dir)")
	pf.Bool("with-caller", false, "log caller")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "auto", "log format (auto, text, json)")
	pf.String("log-file", "", "log to this file as well, rotated")

	pf.String("workspace", ".", "directory the agents may read and write")
	pf.String("drafts-dir", "drafts", "workspace directory for composed drafts")
	pf.String("engine", config.EngineOpenAI, "completion engine (openai, scripted)")
	pf.String("script", "", "YAML script replayed by the scripted engine")
	pf.Int("max-turns", 10, "turn limit per agent")
	pf.Bool("allow-local-endpoint", false, "accept an openai base URL on a local network")
	pf.String("partial-policy", "partial", "run status for partial reports (partial, completed, fail)")

	rootCmd.AddCommand(newRunCommand(), newToolsCommand(), newConfigCommand())
}

type logConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
}

func initLogger() error {
	return InitLogger(&logConfig{
		WithCaller: v.GetBool("with-caller"),
		Level:      v.GetString("log-level"),
		LogFormat:  v.GetString("log-format"),
		LogFile:    v.GetString("log-file"),
	})
}

func InitLogger(cfg *logConfig) error {
	if cfg.WithCaller {
		log.Logger = log.With().Caller().Logger()
	}

	format := cfg.LogFormat
	if format == "" || format == "auto" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		}
	}

	var logWriter io.Writer
	switch format {
	case "text":
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	case "json":
		logWriter = os.Stderr
	default:
		return errors.Errorf("unknown log format %q", cfg.LogFormat)
	}

	if cfg.LogFile != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   false,
		}
		logWriter = io.MultiWriter(logWriter, zerolog.ConsoleWriter{NoColor: true, Out: fileLogger})
	}

	log.Logger = log.Output(logWriter)

	switch cfg.Level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		return errors.Errorf("unknown log level %q", cfg.Level)
	}
	return nil
}
