package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/logger"
)

type runState string

const (
	stateUserTurn  runState = "UserTurn"
	stateAgentTurn runState = "AgentTurn"
	stateJudging   runState = "Judging"
	stateDone      runState = "Done"
)

type runTrigger string

const (
	triggerUserSpoke    runTrigger = "UserSpoke"
	triggerAgentReplied runTrigger = "AgentReplied"
	triggerContinue     runTrigger = "Continue"
	triggerConclude     runTrigger = "Conclude"
)

// Recorder persists transcript messages as they are produced.
type Recorder interface {
	Record(ctx context.Context, runID string, msg llm.Message) error
}

// Runner drives scenarios to a verdict.
type Runner struct {
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRecorder stores every message of every run.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: logger.L,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the mutable state of a single scenario execution.
type run struct {
	id       string
	spec     *Spec
	cast     cast
	messages []llm.Message
	turn     int
	result   Result
}

// Run executes spec. A judge verdict (pass or fail) is a Result; an error from
// any participant aborts the run and is returned as is.
func (r *Runner) Run(ctx context.Context, spec *Spec) (Result, error) {
	c, err := spec.cast()
	if err != nil {
		return nil, err
	}
	st := &run{id: r.newID(), spec: spec, cast: c}
	log := r.logger.With("scenario", spec.Name, "run_id", st.id)

	// UserTurn -> AgentTurn -> Judging -> (UserTurn | Done)
	fsm := stateless.NewStateMachine(stateUserTurn)
	fsm.Configure(stateUserTurn).
		Permit(triggerUserSpoke, stateAgentTurn)
	fsm.Configure(stateAgentTurn).
		Permit(triggerAgentReplied, stateJudging)
	fsm.Configure(stateJudging).
		Permit(triggerContinue, stateUserTurn).
		Permit(triggerConclude, stateDone)

	log.Info("scenario started", "max_turns", spec.MaxTurns)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, err := fsm.State(ctx)
		if err != nil {
			return nil, fmt.Errorf("scenario state machine: %w", err)
		}

		var trigger runTrigger
		switch current {
		case stateUserTurn:
			trigger, err = r.step(ctx, st, st.cast.user, triggerUserSpoke)
		case stateAgentTurn:
			st.turn++
			trigger, err = r.step(ctx, st, st.cast.agent, triggerAgentReplied)
		case stateJudging:
			trigger, err = r.judge(ctx, st)
		case stateDone:
			log.Info("scenario finished", "success", st.result.Succeeded(), "turns", st.turn)
			return st.result, nil
		default:
			return nil, fmt.Errorf("scenario state machine: unexpected state %v", current)
		}
		if err != nil {
			log.Error("scenario aborted", "state", current, "turn", st.turn, "error", err)
			return nil, err
		}

		if err := fsm.FireCtx(ctx, trigger); err != nil {
			return nil, fmt.Errorf("scenario state machine: %w", err)
		}
	}
}

func (st *run) input() Input {
	return Input{
		ScenarioName: st.spec.Name,
		Description:  st.spec.Description,
		Messages:     append([]llm.Message(nil), st.messages...),
		Turn:         st.turn,
		MaxTurns:     st.spec.MaxTurns,
	}
}

func (st *run) outcome() Outcome {
	return Outcome{RunID: st.id, Messages: append([]llm.Message(nil), st.messages...), Turns: st.turn}
}

// step asks a conversational participant for its next message.
func (r *Runner) step(ctx context.Context, st *run, a Agent, next runTrigger) (runTrigger, error) {
	reply, err := a.Call(ctx, st.input())
	if err != nil {
		return "", fmt.Errorf("%s turn %d: %w", a.Role(), st.turn, err)
	}

	msg := reply.Message
	switch a.Role() {
	case RoleUser:
		msg.Role = llm.RoleUser
	case RoleAgent:
		msg.Role = llm.RoleAssistant
	}
	st.messages = append(st.messages, msg)
	r.logger.Debug("scenario message", "run_id", st.id, "role", msg.Role, "turn", st.turn)

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, st.id, msg); err != nil {
			r.logger.Warn("failed to record scenario message", "run_id", st.id, "error", err)
		}
	}
	return next, nil
}

func (r *Runner) judge(ctx context.Context, st *run) (runTrigger, error) {
	in := st.input()
	reply, err := st.cast.judge.Call(ctx, in)
	if err != nil {
		return "", fmt.Errorf("judge turn %d: %w", st.turn, err)
	}

	v := reply.Verdict
	if v == nil {
		v = &Verdict{Decision: DecisionContinue}
	}
	r.logger.Debug("judge verdict", "run_id", st.id, "turn", st.turn, "decision", v.Decision)

	switch v.Decision {
	case DecisionPass:
		st.result = &Success{Outcome: st.outcome(), Judgment: v.Judgment}
		return triggerConclude, nil
	case DecisionFail:
		st.result = &Failure{Outcome: st.outcome(), Judgment: v.Judgment}
		return triggerConclude, nil
	}

	if in.FinalTurn() {
		st.result = &Failure{
			Outcome:  st.outcome(),
			Reason:   fmt.Sprintf("reached max turns (%d) without a verdict", st.spec.MaxTurns),
			Judgment: v.Judgment,
		}
		return triggerConclude, nil
	}
	return triggerContinue, nil
}
