package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/go-go-golems/handoff/pkg/config"
	"github.com/go-go-golems/handoff/pkg/directive"
	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/inference/engine"
	"github.com/go-go-golems/handoff/pkg/inference/engine/openai"
	"github.com/go-go-golems/handoff/pkg/inference/engine/scripted"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/inference/tools/fstools"
	"github.com/go-go-golems/handoff/pkg/orchestrator"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCommand() *cobra.Command {
	var (
		refs       []string
		output     string
		eventsFile string
		showTools  bool
	)
	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Plan a request and execute the resulting directive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			req := orchestrator.UserRequest{Text: strings.Join(args, " "), References: refs}
			result, err := run(ctx, *settings, req, eventsFile, showTools)
			var runErr *orchestrator.RunError
			if result == nil && errors.As(err, &runErr) {
				result = runErr.Result
			}
			if result != nil {
				if perr := printValue(cmd.OutOrStdout(), output, result); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "file or directory the request refers to (repeatable)")
	cmd.Flags().StringVar(&output, "output", "yaml", "result format (yaml, json)")
	cmd.Flags().StringVar(&eventsFile, "events-file", "", "write every run event as a JSON line to this file")
	cmd.Flags().BoolVar(&showTools, "print-tool-calls", false, "print a summary of tool calls to stderr")
	return cmd
}

func run(ctx context.Context, s config.Settings, req orchestrator.UserRequest, eventsFile string, showTools bool) (*directive.RunResult, error) {
	ws, err := fstools.OpenWorkspace(s.Workspace)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = ws.Close()
	}()

	plannerReg, executorReg, err := registries(ws, s.DraftsDir)
	if err != nil {
		return nil, err
	}
	plannerEng, executorEng, err := engines(s)
	if err != nil {
		return nil, err
	}

	stream := events.NewStream(events.WithBufferSize(s.EventBuffer))
	stream.Subscribe(events.NewLogHandler(log.Logger))
	agg := events.NewToolEventAggregator()
	stream.Subscribe(agg)

	eg, egCtx := errgroup.WithContext(ctx)
	var router *events.Router
	if eventsFile != "" {
		f, err := os.Create(eventsFile)
		if err != nil {
			return nil, errors.Wrap(err, "create events file")
		}
		defer func() {
			_ = f.Close()
		}()

		router, err = events.NewRouter(events.WithVerbose(zerolog.GlobalLevel() <= zerolog.TraceLevel))
		if err != nil {
			return nil, err
		}
		router.AddHandler("events-file", events.DefaultTopic, events.JSONLinesPrinterFunc(f))
		eg.Go(func() error {
			return router.Run(egCtx)
		})
		<-router.Running()
		stream.Subscribe(events.NewWatermillHandler(router.Publisher, events.DefaultTopic))
	}

	o, err := orchestrator.New(
		orchestrator.WithPlannerEngine(plannerEng),
		orchestrator.WithExecutorEngine(executorEng),
		orchestrator.WithPlannerRegistry(plannerReg),
		orchestrator.WithExecutorRegistry(executorReg),
		orchestrator.WithPlannerConfig(s.RunnerConfig(turns.RolePlanner, directive.DirectiveSchema)),
		orchestrator.WithExecutorConfig(s.RunnerConfig(turns.RoleExecutor, directive.ReportSchema)),
		orchestrator.WithStream(stream),
		orchestrator.WithRunTimeout(s.RunTimeout),
		orchestrator.WithPartialPolicy(orchestrator.PartialPolicy(s.PartialPolicy)),
	)
	if err != nil {
		stream.Close()
		return nil, err
	}

	result, runErr := o.Execute(ctx, req)

	// Close drains every subscriber, so the events file is complete
	// before the router goes away.
	stream.Close()
	if router != nil {
		_ = router.Close()
		if err := eg.Wait(); err != nil {
			log.Warn().Err(err).Msg("event router stopped with an error")
		}
	}

	if showTools {
		for _, line := range agg.Lines() {
			_, _ = os.Stderr.WriteString(line + "\n")
		}
	}
	return result, runErr
}

func registries(ws *fstools.Workspace, draftsDir string) (planner, executor *tools.Registry, err error) {
	drafts, err := fstools.NewDrafts(ws, draftsDir)
	if err != nil {
		return nil, nil, err
	}
	if planner, err = fstools.NewPlannerRegistry(ws); err != nil {
		return nil, nil, err
	}
	if executor, err = fstools.NewExecutorRegistry(ws, drafts); err != nil {
		return nil, nil, err
	}
	return planner, executor, nil
}

func engines(s config.Settings) (planner, executor engine.Engine, err error) {
	switch s.Engine {
	case config.EngineScripted:
		script, err := scripted.Load(s.Script)
		if err != nil {
			return nil, nil, err
		}
		return script.Engine(turns.RolePlanner), script.Engine(turns.RoleExecutor), nil
	case config.EngineOpenAI:
		eng, err := openai.New(s.OpenAI)
		if err != nil {
			return nil, nil, err
		}
		return eng, eng, nil
	}
	return nil, nil, errors.Errorf("unknown engine %q", s.Engine)
}
