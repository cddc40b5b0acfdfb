package scenario

import "github.com/Elektra-V/scenario-framework/internal/llm"

// Result is either *Success or *Failure.
type Result interface {
	Succeeded() bool
	Transcript() []llm.Message
	isResult()
}

// Outcome is shared by both result variants.
type Outcome struct {
	RunID    string
	Messages []llm.Message
	Turns    int
}

// Transcript returns the recorded conversation.
func (o Outcome) Transcript() []llm.Message { return o.Messages }

// Success means the judge accepted the conversation.
type Success struct {
	Outcome
	Judgment *Judgment
}

func (*Success) Succeeded() bool { return true }
func (*Success) isResult()       {}

// Failure means the conversation finished but the criteria were not met.
// Reason is set when the engine ended the run itself; Judgment when the judge
// explained its decision. Either may be empty.
type Failure struct {
	Outcome
	Reason   string
	Judgment *Judgment
}

func (*Failure) Succeeded() bool { return false }
func (*Failure) isResult()       {}
