// Package scenariotest provides deterministic scenario participants for tests.
package scenariotest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/scenario"
)

// Step configures one scripted turn.
type Step struct {
	Content string
	Verdict *scenario.Verdict
	Err     error
}

// ScriptedAgent replays Steps in order and remembers every input it saw.
type ScriptedAgent struct {
	mu     sync.Mutex
	role   scenario.Role
	steps  []Step
	index  int
	Inputs []scenario.Input
}

// New creates a scripted participant playing role.
func New(role scenario.Role, steps ...Step) *ScriptedAgent {
	return &ScriptedAgent{role: role, steps: append([]Step(nil), steps...)}
}

// Says builds conversational steps from plain strings.
func Says(contents ...string) []Step {
	steps := make([]Step, 0, len(contents))
	for _, c := range contents {
		steps = append(steps, Step{Content: c})
	}
	return steps
}

// Continue, Pass and Fail build judge steps.
func Continue() Step { return Step{Verdict: &scenario.Verdict{Decision: scenario.DecisionContinue}} }

func Pass(met ...string) Step {
	return Step{Verdict: &scenario.Verdict{
		Decision: scenario.DecisionPass,
		Judgment: &scenario.Judgment{MetCriteria: met},
	}}
}

func Fail(reasoning string, unmet ...string) Step {
	return Step{Verdict: &scenario.Verdict{
		Decision: scenario.DecisionFail,
		Judgment: &scenario.Judgment{UnmetCriteria: unmet, Reasoning: reasoning},
	}}
}

// Role implements scenario.Agent.
func (a *ScriptedAgent) Role() scenario.Role { return a.role }

// Call implements scenario.Agent.
func (a *ScriptedAgent) Call(_ context.Context, in scenario.Input) (scenario.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Inputs = append(a.Inputs, in)
	if a.index >= len(a.steps) {
		return scenario.Reply{}, fmt.Errorf("%s script exhausted at step %d", a.role, a.index+1)
	}
	step := a.steps[a.index]
	a.index++
	if step.Err != nil {
		return scenario.Reply{}, step.Err
	}
	return scenario.Reply{Message: llm.Message{Content: step.Content}, Verdict: step.Verdict}, nil
}

// Calls returns how many times the agent was called.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Inputs)
}
