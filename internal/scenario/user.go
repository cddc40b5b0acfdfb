package scenario

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/Elektra-V/scenario-framework/internal/llm"
)

const userSimulatorPrompt = `You are pretending to be a user chatting with an AI assistant.

Scenario: %s
%s
Write only the user's next message. Keep it short and casual, like a real person typing.
Never answer as the assistant and never mention that you are simulated.`

// UserSimulator plays the user side of a scenario with an LLM.
type UserSimulator struct {
	backend     llm.Backend
	model       string
	temperature float32
}

// NewUserSimulator creates a simulated user served by backend.
func NewUserSimulator(backend llm.Backend, model string) *UserSimulator {
	return &UserSimulator{backend: backend, model: model, temperature: 0.7}
}

// Role implements Agent.
func (u *UserSimulator) Role() Role { return RoleUser }

// Call implements Agent. The transcript is mirrored so the model speaks as
// "assistant" while it plays the user.
func (u *UserSimulator) Call(ctx context.Context, in Input) (Reply, error) {
	opening := ""
	if len(in.Messages) == 0 {
		opening = "Open the conversation with your request."
	}
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf(userSimulatorPrompt, in.Description, opening),
	}}
	for _, m := range in.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == llm.RoleUser {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	msg, err := llm.Complete(ctx, u.backend, openai.ChatCompletionRequest{
		Model:       u.model,
		Messages:    messages,
		Temperature: u.temperature,
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Message: llm.User(msg.Content)}, nil
}
