package llm

import (
	"errors"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Chat roles.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ErrNoChoices is returned when a provider answers without any completion choice.
var ErrNoChoices = errors.New("response contained no choices")

// System, User and Assistant build messages of the matching role.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ToOpenAI converts a transcript into go-openai request messages.
func ToOpenAI(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// FirstMessage extracts the top choice of a completion response. Usage and
// other metadata are ignored.
func FirstMessage(resp openai.ChatCompletionResponse) (Message, error) {
	if len(resp.Choices) == 0 {
		return Message{}, ErrNoChoices
	}
	msg := resp.Choices[0].Message
	role := msg.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: msg.Content}, nil
}
