package orchestrator

import (
	"context"
	"time"

	"github.com/go-go-golems/handoff/pkg/directive"
	"github.com/go-go-golems/handoff/pkg/events"
	"github.com/go-go-golems/handoff/pkg/inference/engine"
	"github.com/go-go-golems/handoff/pkg/inference/runner"
	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/prompts"
	"github.com/go-go-golems/handoff/pkg/turns"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PartialPolicy decides the run status of a partial execution report.
type PartialPolicy string

const (
	// PartialKeep reports the run as partial.
	PartialKeep PartialPolicy = "partial"
	// PartialAsCompleted reports the run as completed.
	PartialAsCompleted PartialPolicy = "completed"
	// PartialFail turns a partial report into a run error.
	PartialFail PartialPolicy = "fail"
)

func (p PartialPolicy) Valid() bool {
	switch p {
	case PartialKeep, PartialAsCompleted, PartialFail:
		return true
	}
	return false
}

type UserRequest struct {
	Text       string   `json:"text" yaml:"text"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
}

// AgentRunner runs one agent to its terminal answer.
type AgentRunner interface {
	Run(ctx context.Context, input string) (*runner.Outcome, error)
}

// RunnerFactory builds the runner of a stage.
type RunnerFactory func(cfg runner.Config, eng engine.Engine, reg *tools.Registry, emitter events.Emitter) (AgentRunner, error)

// DefaultRunnerFactory builds a runner.Runner.
func DefaultRunnerFactory(cfg runner.Config, eng engine.Engine, reg *tools.Registry, emitter events.Emitter) (AgentRunner, error) {
	return runner.New(cfg, eng, reg, emitter)
}

// Orchestrator runs the planner and, when the directive asks for it, the
// executor. It holds no per-run state and can serve concurrent runs.
type Orchestrator struct {
	plannerEngine    engine.Engine
	executorEngine   engine.Engine
	plannerRegistry  *tools.Registry
	executorRegistry *tools.Registry
	plannerConfig    runner.Config
	executorConfig   runner.Config
	factory          RunnerFactory
	publisher        events.Publisher
	stream           *events.Stream
	runTimeout       time.Duration
	partialPolicy    PartialPolicy
}

func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		plannerConfig:  runner.DefaultConfig(turns.RolePlanner, directive.DirectiveSchema),
		executorConfig: runner.DefaultConfig(turns.RoleExecutor, directive.ReportSchema),
		factory:        DefaultRunnerFactory,
		partialPolicy:  PartialKeep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.plannerEngine == nil || o.executorEngine == nil {
		return nil, errors.New("orchestrator needs a planner and an executor engine")
	}
	if !o.partialPolicy.Valid() {
		return nil, errors.Errorf("unknown partial policy %q", o.partialPolicy)
	}
	var err error
	if o.plannerRegistry == nil {
		if o.plannerRegistry, err = tools.NewReadOnlyRegistry(); err != nil {
			return nil, err
		}
	}
	if o.executorRegistry == nil {
		if o.executorRegistry, err = tools.NewRegistry(); err != nil {
			return nil, err
		}
	}
	if o.plannerRegistry == o.executorRegistry {
		return nil, errors.New("planner and executor need distinct tool registries")
	}
	if err := checkReadOnly(o.plannerRegistry); err != nil {
		return nil, errors.Wrap(err, "planner registry")
	}

	o.plannerConfig.Role = turns.RolePlanner
	o.plannerConfig.TerminalSchema = directive.DirectiveSchema
	o.executorConfig.Role = turns.RoleExecutor
	o.executorConfig.TerminalSchema = directive.ReportSchema
	if o.plannerConfig.Instructions == "" {
		o.plannerConfig.Instructions, err = prompts.PlannerInstructions(prompts.Instructions{
			Tools: o.plannerRegistry.Names(), Schema: directive.DirectiveSchema.Name,
		})
		if err != nil {
			return nil, err
		}
	}
	if o.executorConfig.Instructions == "" {
		o.executorConfig.Instructions, err = prompts.ExecutorInstructions(prompts.Instructions{
			Tools: o.executorRegistry.Names(), Schema: directive.ReportSchema.Name,
		})
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Orchestrator) PlannerRegistry() *tools.Registry {
	return o.plannerRegistry
}

func (o *Orchestrator) ExecutorRegistry() *tools.Registry {
	return o.executorRegistry
}

// Execute runs one user request. A failed execution report is returned as a
// result with run status failed. Every other failure is a *RunError.
func (o *Orchestrator) Execute(ctx context.Context, req UserRequest) (*directive.RunResult, error) {
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	em := events.NewEmitter(o.publisher, runID, events.StageOrchestrator)
	result := &directive.RunResult{RunID: runID}
	logger := log.With().Str("run_id", runID).Logger()

	em.Emit(events.KindRunStarted, map[string]any{
		"request":    req.Text,
		"references": len(req.References),
	})
	logger.Info().Str("request", req.Text).Msg("run started")

	fail := func(stage turns.Role, err error) (*directive.RunResult, error) {
		re := &RunError{RunID: runID, Stage: stage, Err: err, Result: result}
		var se *runner.StageError
		if errors.As(err, &se) {
			re.Turn = se.Turn
		}
		result.RunStatus = directive.RunFailed
		result.DroppedEvents = o.dropped()
		em.Emit(events.KindRunFailed, map[string]any{
			"stage":             string(stage),
			events.PayloadTurn:  re.Turn,
			events.PayloadError: err.Error(),
		})
		logger.Warn().Str("stage", string(stage)).Int("turn", re.Turn).Err(err).Msg("run failed")
		return nil, re
	}

	input, err := prompts.UserRequest(prompts.Request{Text: req.Text, References: req.References})
	if err != nil {
		return fail(turns.RolePlanner, err)
	}
	planner, err := o.factory(o.plannerConfig, o.plannerEngine, o.plannerRegistry, em.WithStage(events.StagePlanner))
	if err != nil {
		return fail(turns.RolePlanner, errors.Wrap(err, "build planner"))
	}
	out, err := planner.Run(ctx, input)
	if err != nil {
		return fail(turns.RolePlanner, err)
	}
	result.PlannerTurns = out.Turns
	d, ok := out.Terminal.(*directive.Directive)
	if !ok {
		return fail(turns.RolePlanner, errors.Errorf("planner returned %T instead of a directive", out.Terminal))
	}
	result.Directive = d

	switch route := d.Route.(type) {
	case directive.ActionRequired:
		if len(route.Steps()) == 0 {
			return fail(turns.RolePlanner, directive.ErrEmptyPlan)
		}
	default:
		return o.complete(em, logger, result, directive.RunCompleted)
	}

	input, err = prompts.ExecutorInput(prompts.Directive{
		Summary: d.Summary,
		Steps:   d.PlanSteps(),
		Context: d.Context(),
	})
	if err != nil {
		return fail(turns.RoleExecutor, err)
	}
	executor, err := o.factory(o.executorConfig, o.executorEngine, o.executorRegistry, em.WithStage(events.StageExecutor))
	if err != nil {
		return fail(turns.RoleExecutor, errors.Wrap(err, "build executor"))
	}
	out, err = executor.Run(ctx, input)
	if err != nil {
		return fail(turns.RoleExecutor, err)
	}
	result.ExecutorTurns = out.Turns
	report, ok := out.Terminal.(*directive.ExecutionReport)
	if !ok {
		return fail(turns.RoleExecutor, errors.Errorf("executor returned %T instead of an execution report", out.Terminal))
	}
	result.ExecutionReport = report

	switch report.FinalStatus {
	case directive.FinalCompleted:
		return o.complete(em, logger, result, directive.RunCompleted)
	case directive.FinalFailed:
		return o.complete(em, logger, result, directive.RunFailed)
	case directive.FinalPartial:
		switch o.partialPolicy {
		case PartialAsCompleted:
			return o.complete(em, logger, result, directive.RunCompleted)
		case PartialFail:
			return fail(turns.RoleExecutor, ErrPartialExecution)
		default:
			return o.complete(em, logger, result, directive.RunPartial)
		}
	default:
		return fail(turns.RoleExecutor, errors.Errorf("unknown final status %q", report.FinalStatus))
	}
}

func (o *Orchestrator) complete(em events.Emitter, logger zerolog.Logger, result *directive.RunResult, status directive.RunStatus) (*directive.RunResult, error) {
	result.RunStatus = status
	payload := map[string]any{
		events.PayloadStatus: string(status),
		"executed":           result.ExecutionReport != nil,
	}
	em.Emit(events.KindRunCompleted, payload)
	result.DroppedEvents = o.dropped()
	logger.Info().Str("status", string(status)).Bool("executed", result.ExecutionReport != nil).Msg("run completed")
	return result, nil
}

func (o *Orchestrator) dropped() uint64 {
	if o.stream == nil {
		return 0
	}
	return o.stream.Dropped()
}

// checkReadOnly enforces the capability boundary of the planner.
func checkReadOnly(reg *tools.Registry) error {
	side := reg.WithMutability(tools.SideEffecting)
	if len(side) == 0 {
		return nil
	}
	return &tools.CapabilityViolationError{Tool: side[0].Name, Mutability: side[0].Mutability, Ceiling: tools.ReadOnly}
}
