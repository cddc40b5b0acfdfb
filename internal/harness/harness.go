// Package harness wires the recipe agent, a simulated user and a judge into
// scenarios, runs them and turns the outcome into readable reports.
package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/Elektra-V/scenario-framework/internal/agent"
	"github.com/Elektra-V/scenario-framework/internal/config"
	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/scenario"
)

// Engine runs a scenario to completion. *scenario.Runner implements it.
type Engine interface {
	Run(ctx context.Context, spec *scenario.Spec) (scenario.Result, error)
}

// Participants supplies the simulated user and builds judges for a set of criteria.
type Participants struct {
	UserSimulator scenario.Agent
	Judge         func(criteria []string) scenario.Agent
}

// NewParticipants builds LLM-backed participants from cfg.
func NewParticipants(cfg *config.Config, opts ...llm.Option) (Participants, error) {
	userBackend, err := llm.NewBackend(cfg.ParticipantBackend(cfg.UserSimulatorModel), opts...)
	if err != nil {
		return Participants{}, fmt.Errorf("user simulator backend: %w", err)
	}
	judgeBackend, err := llm.NewBackend(cfg.ParticipantBackend(cfg.JudgeModel), opts...)
	if err != nil {
		return Participants{}, fmt.Errorf("judge backend: %w", err)
	}
	return Participants{
		UserSimulator: scenario.NewUserSimulator(userBackend, cfg.UserSimulatorModel),
		Judge: func(criteria []string) scenario.Agent {
			return scenario.NewJudge(judgeBackend, cfg.JudgeModel, criteria)
		},
	}, nil
}

// NewRecipeAgent builds the agent under test on the backend selected by cfg.
func NewRecipeAgent(cfg *config.Config, opts ...llm.Option) (*agent.RecipeAgent, error) {
	bc := cfg.Backend()
	backend, err := llm.NewBackend(bc, opts...)
	if err != nil {
		return nil, err
	}
	return agent.New(backend, bc.Model), nil
}

// BuildScenario assembles [agent under test, simulated user, judge]. It only
// checks that there are participants and that the turn limit is positive.
func BuildScenario(name, description string, agentUnderTest scenario.Agent, turnLimit int, criteria []string, p Participants) (*scenario.Spec, error) {
	var agents []scenario.Agent
	if agentUnderTest != nil {
		agents = append(agents, agentUnderTest)
	}
	if p.UserSimulator != nil {
		agents = append(agents, p.UserSimulator)
	}
	if p.Judge != nil {
		agents = append(agents, p.Judge(criteria))
	}
	return scenario.NewSpec(name, description, turnLimit, agents...)
}

// BuildDefinition is BuildScenario for a catalog entry.
func BuildDefinition(d Definition, agentUnderTest scenario.Agent, p Participants) (*scenario.Spec, error) {
	return BuildScenario(d.Name, d.Description, agentUnderTest, d.MaxTurns, d.Criteria, p)
}

// RunScenario hands spec to the engine. Errors are returned unmodified.
func RunScenario(ctx context.Context, e Engine, spec *scenario.Spec) (scenario.Result, error) {
	return e.Run(ctx, spec)
}

// Summarize renders a result for the console. Successful results are reported
// without looking at the judge's detail.
func Summarize(res scenario.Result) string {
	var b strings.Builder
	switch r := res.(type) {
	case *scenario.Success:
		b.WriteString("Scenario Result: SUCCESS\n")
	case *scenario.Failure:
		b.WriteString("Scenario Result: FAILED\n")
		switch {
		case r.Reason != "":
			fmt.Fprintf(&b, "Failure reason: %s\n", r.Reason)
		case hasDetail(r.Judgment):
			writeJudgment(&b, r.Judgment)
		default:
			b.WriteString("Failure reason: unknown\n")
		}
	default:
		b.WriteString("Scenario Result: unknown\n")
	}
	return b.String()
}

func hasDetail(j *scenario.Judgment) bool {
	return j != nil && (len(j.MetCriteria) > 0 || len(j.UnmetCriteria) > 0 || strings.TrimSpace(j.Reasoning) != "")
}

func writeJudgment(b *strings.Builder, j *scenario.Judgment) {
	if len(j.MetCriteria) > 0 {
		b.WriteString("Met criteria:\n")
		for _, c := range j.MetCriteria {
			fmt.Fprintf(b, "  - %s\n", c)
		}
	}
	if len(j.UnmetCriteria) > 0 {
		b.WriteString("Unmet criteria:\n")
		for _, c := range j.UnmetCriteria {
			fmt.Fprintf(b, "  - %s\n", c)
		}
	}
	if sentences := SplitSentences(j.Reasoning); len(sentences) > 0 {
		b.WriteString("Reasoning:\n")
		for _, s := range sentences {
			fmt.Fprintf(b, "  %s\n", s)
		}
	}
}

// FailureMessage formats a failed result as a test assertion message. It
// returns "" for successful results.
func FailureMessage(res scenario.Result) string {
	f, ok := res.(*scenario.Failure)
	if !ok {
		return ""
	}
	if f.Judgment == nil {
		if f.Reason != "" {
			return "Scenario failed: " + f.Reason
		}
		return "Scenario failed"
	}
	msg := "Scenario failed:\n"
	if f.Reason != "" {
		msg += fmt.Sprintf("Reason: %s\n", f.Reason)
	}
	if len(f.Judgment.UnmetCriteria) > 0 {
		msg += fmt.Sprintf("Unmet criteria: %s\n", strings.Join(f.Judgment.UnmetCriteria, ", "))
	}
	if f.Judgment.Reasoning != "" {
		msg += fmt.Sprintf("Reasoning: %s", f.Judgment.Reasoning)
	}
	return strings.TrimRight(msg, "\n")
}

// SplitSentences breaks text after '.', '!' or '?' followed by whitespace.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(strings.TrimSpace(text))
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
