package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/Elektra-V/scenario-framework/internal/config"
	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/logger"
)

// knownChatModels are checked when the backend cannot list its models.
var knownChatModels = []string{
	"Llama-3-SauerkrautLM",
	"llama-3-70b",
	"gpt-4o-mini",
	"gpt-4",
	"gpt-3.5-turbo",
}

// knownEmbeddingModels are checked when listing finds no embedding model.
var knownEmbeddingModels = []string{
	"all-mpnet-base-v2",
	"text-embedding-ada-002",
	"text-embedding-3-small",
	"text-embedding-3-large",
}

var embeddingKeywords = []string{"embed", "ada-002", "text-embedding", "mpnet", "sentence"}

const checkLimit = 4

type availability int

const (
	available availability = iota
	unavailable
	maybeAvailable
)

func (a availability) String() string {
	switch a {
	case available:
		return "available"
	case unavailable:
		return "not available"
	default:
		return "maybe available"
	}
}

type checkResult struct {
	model  string
	status availability
	detail string
}

// embedder is implemented by *openai.Client.
type embedder interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

func listModels(ctx context.Context, out io.Writer, cfg *config.Config, opts ...llm.Option) error {
	bc := cfg.Backend()
	backend, err := llm.NewBackend(bc, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Available models")
	fmt.Fprintln(out, rule)
	if bc.UseGateway {
		fmt.Fprintf(out, "Gateway: %s\n", bc.Gateway.BaseURL)
		if bc.Gateway.Username != "" {
			fmt.Fprintf(out, "Username: %s\n", bc.Gateway.Username)
		}
	} else {
		fmt.Fprintln(out, "Backend: OpenAI")
	}

	var chat, embedding []openai.Model
	if lister, ok := backend.Client().(llm.ModelLister); ok {
		list, err := lister.ListModels(ctx)
		if err != nil {
			logger.L.Warn("listing models failed", "backend", backend.Name(), "error", err)
			fmt.Fprintf(out, "\nCould not list models: %v\n", err)
		} else {
			chat, embedding = splitModels(list.Models)
		}
	}

	fmt.Fprintf(out, "\nChat models (%d):\n", len(chat))
	for _, m := range chat {
		fmt.Fprintf(out, "  - %s%s\n", m.ID, describeModel(m))
	}
	if len(chat) == 0 {
		fmt.Fprintln(out, "\nChecking known chat models...")
		printChecks(out, checkModels(ctx, knownChatModels, chatCheck(backend.Client())))
	}

	e, canEmbed := backend.Client().(embedder)
	fmt.Fprintf(out, "\nEmbedding models (%d):\n", len(embedding))
	for _, m := range embedding {
		fmt.Fprintf(out, "  - %s%s\n", m.ID, describeEmbedding(ctx, e, m.ID))
	}
	if len(embedding) == 0 && canEmbed {
		fmt.Fprintln(out, "\nChecking known embedding models...")
		printChecks(out, checkModels(ctx, knownEmbeddingModels, embeddingCheck(e)))
	}

	if cfg.TestModel != "" {
		fmt.Fprintf(out, "\nTesting model %s...\n", cfg.TestModel)
		if reply, err := testModel(ctx, backend, cfg.TestModel); err != nil {
			fmt.Fprintf(out, "  failed: %v\n", err)
		} else {
			fmt.Fprintf(out, "  reply: %s\n", reply)
		}
	}
	fmt.Fprintln(out, rule)
	return nil
}

// splitModels separates embedding models from chat models by name and sorts
// both by ID.
func splitModels(models []openai.Model) (chat, embedding []openai.Model) {
	for _, m := range models {
		if isEmbeddingModel(m.ID) {
			embedding = append(embedding, m)
		} else {
			chat = append(chat, m)
		}
	}
	byID := func(ms []openai.Model) func(i, j int) bool {
		return func(i, j int) bool { return ms[i].ID < ms[j].ID }
	}
	sort.Slice(chat, byID(chat))
	sort.Slice(embedding, byID(embedding))
	return chat, embedding
}

func isEmbeddingModel(id string) bool {
	id = strings.ToLower(id)
	for _, kw := range embeddingKeywords {
		if strings.Contains(id, kw) {
			return true
		}
	}
	return false
}

func describeModel(m openai.Model) string {
	var parts []string
	if m.OwnedBy != "" {
		parts = append(parts, "owned by "+m.OwnedBy)
	}
	if m.CreatedAt > 0 {
		parts = append(parts, "created "+time.Unix(m.CreatedAt, 0).UTC().Format(time.DateOnly))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// describeEmbedding reports the vector dimension when e is set and the model answers.
func describeEmbedding(ctx context.Context, e embedder, model string) string {
	if e == nil {
		return ""
	}
	dim, err := embeddingCheck(e)(ctx, model)
	if err != nil {
		return ""
	}
	return " (" + dim + ")"
}

// checkFunc tries model once and returns a detail line for a successful call.
type checkFunc func(ctx context.Context, model string) (string, error)

func chatCheck(c llm.Client) checkFunc {
	return func(ctx context.Context, model string) (string, error) {
		_, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     model,
			Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "test"}},
			MaxTokens: 1,
		})
		return "", err
	}
}

func embeddingCheck(e embedder) checkFunc {
	return func(ctx context.Context, model string) (string, error) {
		resp, err := e.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{"test"},
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return "", err
		}
		if len(resp.Data) == 0 {
			return "dimension unknown", nil
		}
		return fmt.Sprintf("dimension %d", len(resp.Data[0].Embedding)), nil
	}
}

// checkModels runs check for each model, at most checkLimit at a time.
// Results keep the order of models.
func checkModels(ctx context.Context, models []string, check checkFunc) []checkResult {
	results := make([]checkResult, len(models))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkLimit)
	for i, model := range models {
		i, model := i, model
		g.Go(func() error {
			detail, err := check(gctx, model)
			results[i] = classifyCheck(model, err)
			if err == nil {
				results[i].detail = detail
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func printChecks(out io.Writer, results []checkResult) {
	for _, r := range results {
		line := fmt.Sprintf("  %s: %s", r.model, r.status)
		if r.detail != "" {
			line += " (" + r.detail + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func classifyCheck(model string, err error) checkResult {
	if err == nil {
		return checkResult{model: model, status: available}
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "model") && (strings.Contains(lower, "not found") || strings.Contains(lower, "invalid") || strings.Contains(lower, "does not exist")) {
		return checkResult{model: model, status: unavailable}
	}
	if len(msg) > 50 {
		msg = msg[:50] + "..."
	}
	return checkResult{model: model, status: maybeAvailable, detail: msg}
}

func testModel(ctx context.Context, b llm.Backend, model string) (string, error) {
	msg, err := llm.Complete(ctx, b, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  llm.ToOpenAI([]llm.Message{llm.User("Say 'test'")}),
		MaxTokens: 10,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}
