package agent

import (
	"context"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/logger"
	"github.com/Elektra-V/scenario-framework/internal/scenario"
)

// SystemPrompt is prepended to every conversation sent to the model.
const SystemPrompt = `You are a vegetarian recipe agent.
Given the user request, ask AT MOST ONE follow-up question,
then provide a complete vegetarian recipe with:
- A list of ingredients
- Numbered step-by-step cooking instructions
Keep your responses concise and focused.`

const defaultTemperature float32 = 0.7

// RecipeAgent suggests vegetarian recipes through whichever backend it was built with.
type RecipeAgent struct {
	backend      llm.Backend
	model        string
	temperature  float32
	systemPrompt string
	logger       *slog.Logger
}

// Option configures a RecipeAgent.
type Option func(*RecipeAgent)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(a *RecipeAgent) {
		a.temperature = t
	}
}

// WithSystemPrompt replaces SystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(a *RecipeAgent) {
		a.systemPrompt = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *RecipeAgent) {
		a.logger = l
	}
}

// New creates a recipe agent.
func New(backend llm.Backend, model string, opts ...Option) *RecipeAgent {
	a := &RecipeAgent{
		backend:      backend,
		model:        model,
		temperature:  defaultTemperature,
		systemPrompt: SystemPrompt,
		logger:       logger.L,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backend returns the backend serving this agent.
func (a *RecipeAgent) Backend() llm.Backend { return a.backend }

// Model returns the model identifier.
func (a *RecipeAgent) Model() string { return a.model }

// CallOption adds per-call request extras.
type CallOption func(context.Context) context.Context

// WithExtraHeaders sends additional HTTP headers (e.g. X-Request-ID) with the call.
func WithExtraHeaders(h map[string]string) CallOption {
	return func(ctx context.Context) context.Context {
		return llm.WithExtraHeaders(ctx, h)
	}
}

// WithExtraBody merges additional top-level fields (e.g. guided_choice) into the request body.
func WithExtraBody(b map[string]any) CallOption {
	return func(ctx context.Context) context.Context {
		return llm.WithExtraBody(ctx, b)
	}
}

// Complete answers the transcript. The system prompt always goes first, so a
// transcript of N messages produces a request of N+1.
func (a *RecipeAgent) Complete(ctx context.Context, transcript []llm.Message, opts ...CallOption) (llm.Message, error) {
	for _, opt := range opts {
		ctx = opt(ctx)
	}

	messages := make([]llm.Message, 0, len(transcript)+1)
	messages = append(messages, llm.System(a.systemPrompt))
	messages = append(messages, transcript...)

	a.logger.Debug("recipe agent request", "backend", a.backend.Name(), "model", a.model, "messages", len(messages))
	msg, err := llm.Complete(ctx, a.backend, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    llm.ToOpenAI(messages),
		Temperature: a.temperature,
	})
	if err != nil {
		a.logger.Error("recipe agent completion failed", "backend", a.backend.Name(), "model", a.model, "error", err)
		return llm.Message{}, err
	}
	return msg, nil
}

// Role implements scenario.Agent.
func (a *RecipeAgent) Role() scenario.Role { return scenario.RoleAgent }

// Call implements scenario.Agent.
func (a *RecipeAgent) Call(ctx context.Context, in scenario.Input) (scenario.Reply, error) {
	msg, err := a.Complete(ctx, in.Messages)
	if err != nil {
		return scenario.Reply{}, err
	}
	return scenario.Reply{Message: msg}, nil
}
