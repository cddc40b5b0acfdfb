package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is minimal subset of openai.Client used by the agents; it is easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is implemented by clients that can enumerate the models of their backend.
// Callers detect it with a type assertion.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Backend hides which provider serves completions. It is chosen once at
// construction and never switched afterwards.
type Backend interface {
	// Name returns the backend identifier ("openai" or "gateway").
	Name() string

	// Client returns the completion client bound to this backend.
	Client() Client
}
