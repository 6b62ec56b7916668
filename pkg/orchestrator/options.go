package orchestrator

import (
	"time"

	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/inference/engine"
	"github.com/go-go-golems/handoff/pkg/inference/runner"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
)

type Option func(*Orchestrator)

// WithEngine uses eng for both agents.
func WithEngine(eng engine.Engine) Option {
	return func(o *Orchestrator) {
		o.plannerEngine = eng
		o.executorEngine = eng
	}
}

func WithPlannerEngine(eng engine.Engine) Option {
	return func(o *Orchestrator) { o.plannerEngine = eng }
}

func WithExecutorEngine(eng engine.Engine) Option {
	return func(o *Orchestrator) { o.executorEngine = eng }
}

func WithPlannerRegistry(reg *tools.Registry) Option {
	return func(o *Orchestrator) { o.plannerRegistry = reg }
}

func WithExecutorRegistry(reg *tools.Registry) Option {
	return func(o *Orchestrator) { o.executorRegistry = reg }
}

func WithPlannerConfig(cfg runner.Config) Option {
	return func(o *Orchestrator) { o.plannerConfig = cfg }
}

func WithExecutorConfig(cfg runner.Config) Option {
	return func(o *Orchestrator) { o.executorConfig = cfg }
}

// WithRunnerFactory replaces how agent runners are built.
func WithRunnerFactory(f RunnerFactory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

// WithPublisher sends run events to p.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithStream sends run events to s and reports its drop counter in results.
func WithStream(s *events.Stream) Option {
	return func(o *Orchestrator) {
		o.publisher = s
		o.stream = s
	}
}

// WithRunTimeout bounds a whole run. Zero disables it.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.runTimeout = d }
}

func WithPartialPolicy(p PartialPolicy) Option {
	return func(o *Orchestrator) { o.partialPolicy = p }
}
