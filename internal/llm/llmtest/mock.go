// Package llmtest provides test doubles for the llm package.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Elektra-V/scenario-framework/internal/llm"
)

// MockClient is a thread-safe llm.Client returning canned replies in order.
//
//	mock := &llmtest.MockClient{Replies: []string{"first", "second"}}
//	mock := &llmtest.MockClient{Err: errors.New("connection refused")}
type MockClient struct {
	mu       sync.Mutex
	Replies  []string // Contents returned in sequence
	Err      error    // Returned for every call when set
	Requests []openai.ChatCompletionRequest
	index    int
}

// CreateChatCompletion implements llm.Client.
func (m *MockClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return openai.ChatCompletionResponse{}, m.Err
	}
	if m.index >= len(m.Replies) {
		return openai.ChatCompletionResponse{}, fmt.Errorf("mock client: script exhausted at call %d", m.index+1)
	}
	content := m.Replies[m.index]
	m.index++
	return openai.ChatCompletionResponse{
		Model: req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}, nil
}

// CallCount returns the number of requests received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockClient) LastRequest() openai.ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return openai.ChatCompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// Backend is an llm.Backend serving a fixed client.
type Backend struct {
	ID   string
	Mock llm.Client
}

// NewBackend wraps client as a backend named "mock".
func NewBackend(client llm.Client) *Backend {
	return &Backend{ID: "mock", Mock: client}
}

// Name implements llm.Backend.
func (b *Backend) Name() string { return b.ID }

// Client implements llm.Backend.
func (b *Backend) Client() llm.Client { return b.Mock }
