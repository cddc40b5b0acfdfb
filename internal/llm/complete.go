package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Complete issues one non-streaming chat completion on b and returns the top
// choice. Failures come back as *CompletionError and are not retried.
func Complete(ctx context.Context, b Backend, req openai.ChatCompletionRequest) (Message, error) {
	resp, err := b.Client().CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, &CompletionError{Backend: b.Name(), Model: req.Model, Err: err}
	}
	msg, err := FirstMessage(resp)
	if err != nil {
		return Message{}, &CompletionError{Backend: b.Name(), Model: req.Model, Err: err}
	}
	return msg, nil
}
