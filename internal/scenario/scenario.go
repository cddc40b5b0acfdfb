// Package scenario runs simulated conversations between an agent under test,
// a simulated user and a judge, and reports whether the judge's criteria were met.
package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/Elektra-V/scenario-framework/internal/llm"
)

// ErrInvalidScenario is returned for specs that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Role is the part an agent plays in a scenario.
type Role int

const (
	RoleAgent Role = iota // agent under test
	RoleUser              // simulated user
	RoleJudge             // judge deciding pass/fail
)

func (r Role) String() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleUser:
		return "user"
	case RoleJudge:
		return "judge"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Input is the conversation so far, as handed to an agent. Messages are from
// the agent-under-test's point of view: "user" is the simulated user and
// "assistant" is the agent under test.
type Input struct {
	ScenarioName string
	Description  string
	Messages     []llm.Message
	Turn         int
	MaxTurns     int
}

// FinalTurn reports whether the judge must conclude now.
func (in Input) FinalTurn() bool {
	return in.MaxTurns > 0 && in.Turn >= in.MaxTurns
}

// Reply is an agent's answer. Judges set Verdict; everyone else sets Message.
type Reply struct {
	Message llm.Message
	Verdict *Verdict
}

// Agent is a scenario participant.
type Agent interface {
	Role() Role
	Call(ctx context.Context, in Input) (Reply, error)
}

// Decision is the judge's call after an agent turn.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionPass
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionPass:
		return "pass"
	case DecisionFail:
		return "fail"
	default:
		return "continue"
	}
}

// Judgment is the judge's structured evaluation.
type Judgment struct {
	MetCriteria   []string `json:"met_criteria"`
	UnmetCriteria []string `json:"unmet_criteria"`
	Reasoning     string   `json:"reasoning"`
}

// Verdict is what a judge returns.
type Verdict struct {
	Decision Decision
	Judgment *Judgment
}

// Spec describes one scenario run.
type Spec struct {
	Name        string
	Description string
	Agents      []Agent
	MaxTurns    int
}

// NewSpec assembles a spec. Only the participant list and turn budget are checked here;
// role assignment is checked when the spec runs.
func NewSpec(name, description string, maxTurns int, agents ...Agent) (*Spec, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidScenario)
	}
	if maxTurns <= 0 {
		return nil, fmt.Errorf("%w: max turns must be positive, got %d", ErrInvalidScenario, maxTurns)
	}
	return &Spec{
		Name:        name,
		Description: description,
		Agents:      append([]Agent(nil), agents...),
		MaxTurns:    maxTurns,
	}, nil
}

// cast holds the three participants of a validated spec.
type cast struct {
	agent, user, judge Agent
}

func (s *Spec) cast() (cast, error) {
	var c cast
	if s == nil {
		return c, fmt.Errorf("%w: nil spec", ErrInvalidScenario)
	}
	if s.MaxTurns <= 0 {
		return c, fmt.Errorf("%w: max turns must be positive, got %d", ErrInvalidScenario, s.MaxTurns)
	}
	counts := map[Role]int{}
	for _, a := range s.Agents {
		if a == nil {
			return c, fmt.Errorf("%w: nil participant", ErrInvalidScenario)
		}
		r := a.Role()
		counts[r]++
		switch r {
		case RoleAgent:
			c.agent = a
		case RoleUser:
			c.user = a
		case RoleJudge:
			c.judge = a
		default:
			return c, fmt.Errorf("%w: unknown role %s", ErrInvalidScenario, r)
		}
	}
	for _, r := range []Role{RoleAgent, RoleUser, RoleJudge} {
		if counts[r] != 1 {
			return c, fmt.Errorf("%w: need exactly one %s, got %d", ErrInvalidScenario, r, counts[r])
		}
	}
	return c, nil
}
