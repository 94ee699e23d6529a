// Package pipeline runs named stages over a shared State, with one
// conditional branch that can loop the run back to an earlier stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resumeagent/internal/errors"
)

// StageFunc computes a stage's changes from a snapshot of the state
type StageFunc func(ctx context.Context, state State) (Update, error)

// Stage is a named step of a pipeline
type Stage struct {
	Name string
	Run  StageFunc
}

// Next routes a decision to the stage after the branch point
const Next = ""

// Branch evaluates Decide after the stage named After and jumps to the
// stage named in Routes. MaxLoopBacks caps how often any route may point
// backwards, whatever Decide returns.
type Branch struct {
	After        string
	Decide       func(score, iteration int) Decision
	Routes       map[Decision]string
	MaxLoopBacks int
}

// Pipeline is an ordered list of stages with an optional branch
type Pipeline struct {
	Name   string
	Stages []Stage
	Branch *Branch
}

// StageNames lists the stages in execution order
func (p Pipeline) StageNames() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name
	}
	return names
}

// Validate checks that stage names are unique and every route resolves
func (p Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
			fmt.Sprintf("pipeline %s has no stages", p.Name), nil)
	}

	index := make(map[string]int, len(p.Stages))
	for i, s := range p.Stages {
		if s.Name == "" || s.Run == nil {
			return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
				fmt.Sprintf("pipeline %s: stage %d is missing a name or function", p.Name, i), nil)
		}
		if _, dup := index[s.Name]; dup {
			return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
				fmt.Sprintf("pipeline %s: duplicate stage %s", p.Name, s.Name), nil)
		}
		index[s.Name] = i
	}

	if p.Branch == nil {
		return nil
	}
	if _, ok := index[p.Branch.After]; !ok {
		return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
			fmt.Sprintf("pipeline %s: branch point %s is not a stage", p.Name, p.Branch.After), nil)
	}
	if p.Branch.Decide == nil {
		return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
			fmt.Sprintf("pipeline %s: branch has no decision function", p.Name), nil)
	}
	for _, d := range []Decision{Continue, Accept, Exhausted} {
		target, ok := p.Branch.Routes[d]
		if !ok {
			return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
				fmt.Sprintf("pipeline %s: no route for decision %s", p.Name, d), nil)
		}
		if target == Next {
			continue
		}
		if _, ok := index[target]; !ok {
			return errors.NewPipelineError(errors.ErrCodePipelineInvalid,
				fmt.Sprintf("pipeline %s: route %s points to unknown stage %s", p.Name, d, target), nil)
		}
	}
	return nil
}

// Hooks receive engine events. Any field may be nil.
type Hooks struct {
	StageCompleted func(ctx context.Context, stage string, duration time.Duration, err error)
	Decided        func(ctx context.Context, decision Decision, state State)
}

// Engine executes pipelines
type Engine struct {
	logger *errors.Logger
	hooks  Hooks
}

// NewEngine creates a new pipeline engine
func NewEngine(logger *errors.Logger) *Engine {
	return &Engine{logger: logger}
}

// SetHooks registers callbacks for stage and branch events
func (e *Engine) SetHooks(hooks Hooks) {
	e.hooks = hooks
}

// Run executes p starting from initial. Stages run one at a time in order.
// The first stage error ends the run with a PIPELINE_STAGE_FAILED error; the
// state returned alongside it is partial and only useful for diagnostics.
func (e *Engine) Run(ctx context.Context, p Pipeline, initial State) (State, error) {
	if err := p.Validate(); err != nil {
		return initial, err
	}

	index := make(map[string]int, len(p.Stages))
	for i, s := range p.Stages {
		index[s.Name] = i
	}

	ctx, span := otel.Tracer("resumeagent.pipeline").Start(ctx, "pipeline."+p.Name)
	defer span.End()
	span.SetAttributes(attribute.String("pipeline.run_id", initial.RunID))

	e.logger.Info("Pipeline started", "pipeline", p.Name, "run_id", initial.RunID, "stages", p.StageNames())
	start := time.Now()

	state := initial
	loopBacks := 0
	for pos := 0; pos < len(p.Stages); {
		stage := p.Stages[pos]

		if err := ctx.Err(); err != nil {
			return state, e.fail(span, p.Name, stage.Name, state, err)
		}

		update, err := e.runStage(ctx, p.Name, stage, state)
		if err != nil {
			return state, e.fail(span, p.Name, stage.Name, state, err)
		}
		state = state.Apply(update)

		if p.Branch == nil || stage.Name != p.Branch.After {
			pos++
			continue
		}

		decision := p.Branch.Decide(state.Score, state.Iteration)
		target := p.Branch.Routes[decision]
		backwards := target != Next && index[target] <= pos
		if backwards && loopBacks >= p.Branch.MaxLoopBacks {
			e.logger.Warn("Loop-back limit reached, leaving review loop",
				"pipeline", p.Name,
				"run_id", state.RunID,
				"loop_backs", loopBacks,
				"iteration", state.Iteration)
			decision = Exhausted
			target = p.Branch.Routes[Exhausted]
			backwards = target != Next && index[target] <= pos
		}

		if decision != Continue {
			state.Outcome = decision.outcome()
		}
		e.logger.Info("Review decision",
			"pipeline", p.Name,
			"run_id", state.RunID,
			"score", state.Score,
			"iteration", state.Iteration,
			"decision", decision.String())
		if e.hooks.Decided != nil {
			e.hooks.Decided(ctx, decision, state)
		}

		if target == Next {
			pos++
			continue
		}
		if backwards {
			loopBacks++
		}
		pos = index[target]
	}

	span.SetAttributes(
		attribute.Int("pipeline.iterations", state.Iteration),
		attribute.String("pipeline.outcome", state.Outcome),
	)
	e.logger.Info("Pipeline completed",
		"pipeline", p.Name,
		"run_id", state.RunID,
		"iterations", state.Iteration,
		"score", state.Score,
		"outcome", state.Outcome,
		"duration", time.Since(start))
	return state, nil
}

func (e *Engine) runStage(ctx context.Context, pipeline string, stage Stage, state State) (Update, error) {
	ctx, span := otel.Tracer("resumeagent.pipeline").Start(ctx, "pipeline."+stage.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.name", pipeline),
		attribute.String("pipeline.run_id", state.RunID),
		attribute.Int("pipeline.iteration", state.Iteration),
	)

	e.logger.Debug("Stage started", "stage", stage.Name, "run_id", state.RunID)
	start := time.Now()
	update, err := stage.Run(ctx, state)
	duration := time.Since(start)

	if e.hooks.StageCompleted != nil {
		e.hooks.StageCompleted(ctx, stage.Name, duration, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Update{}, err
	}

	e.logger.Debug("Stage completed", "stage", stage.Name, "run_id", state.RunID, "duration", duration)
	return update, nil
}

func (e *Engine) fail(span trace.Span, pipeline, stage string, state State, cause error) error {
	appErr := errors.NewPipelineError(errors.ErrCodePipelineStageFailed,
		fmt.Sprintf("stage %s failed", stage), cause).
		WithContext("pipeline", pipeline).
		WithContext("stage", stage).
		WithContext("iteration", state.Iteration)
	span.SetStatus(codes.Error, appErr.Message)
	e.logger.LogError(appErr, "Pipeline aborted", "run_id", state.RunID)
	return appErr
}
