package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway answers like an OpenAI-compatible gateway. Judge requests are
// recognised by their system prompt.
type fakeGateway struct {
	*httptest.Server
	verdict   string
	models    []string
	badModels map[string]bool

	mu    sync.Mutex
	auths []string
	paths []string
}

func newFakeGateway(t *testing.T, verdict string) *fakeGateway {
	t.Helper()
	g := &fakeGateway{verdict: verdict, badModels: map[string]bool{}}
	g.Server = httptest.NewServer(http.HandlerFunc(g.handle))
	t.Cleanup(g.Close)
	return g
}

func (g *fakeGateway) handle(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.auths = append(g.auths, r.Header.Get("Authorization"))
	g.paths = append(g.paths, r.URL.Path)
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/models"):
		if g.models == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"not supported","type":"invalid_request_error"}}`))
			return
		}
		data := make([]map[string]any, 0, len(g.models))
		for _, id := range g.models {
			data = append(data, map[string]any{"id": id, "object": "model", "owned_by": "gateway", "created": 1700000000})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if g.badModels[req.Model] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"The model ` + req.Model + ` does not exist","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}}},
		})
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if g.badModels[req.Model] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"The model ` + req.Model + ` does not exist","type":"invalid_request_error"}}`))
			return
		}
		content := "Ingredients:\n- chickpeas\n- spinach\n1. Simmer everything for 20 minutes."
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "You are judging") {
			content = g.verdict
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (g *fakeGateway) requests() (auths, paths []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.auths...), append([]string(nil), g.paths...)
}

// gatewayEnv points the configuration at url and clears everything else.
func gatewayEnv(t *testing.T, url string) {
	t.Helper()
	for key, value := range map[string]string{
		"ENV_FILE":                filepath.Join(t.TempDir(), "missing.env"),
		"USE_CUSTOM_GATEWAY":      "true",
		"OPENAI_API_KEY":          "",
		"CUSTOM_GATEWAY_BASE_URL": url,
		"CUSTOM_GATEWAY_API_KEY":  "",
		"GENAI_USERNAME":          "alice",
		"GENAI_PASSWORD":          "s3cret",
		"CUSTOM_MODEL":            "Llama-3-SauerkrautLM",
		"AGENT_MODEL":             "",
		"USER_SIMULATOR_MODEL":    "",
		"JUDGE_MODEL":             "",
		"TEST_MODEL":              "",
		"HISTORY_DB_PATH":         "",
		"LOG_LEVEL":               "error",
	} {
		t.Setenv(key, value)
	}
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestExecute_ScenarioPasses(t *testing.T) {
	gw := newFakeGateway(t, `{"verdict": "pass", "met_criteria": ["provides ingredients list"]}`)
	gatewayEnv(t, gw.URL)

	for _, args := range [][]string{nil, {"run"}} {
		code, out, errOut := run(t, args...)
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "Using custom gateway with model: Llama-3-SauerkrautLM")
		assert.Contains(t, out, "Scenario Result: SUCCESS")
		assert.NotContains(t, out, "s3cret")
	}

	auths, _ := gw.requests()
	require.NotEmpty(t, auths)
	for _, a := range auths {
		assert.Equal(t, "Basic YWxpY2U6czNjcmV0", a)
	}
}

func TestExecute_ScenarioFails(t *testing.T) {
	gw := newFakeGateway(t, `{"verdict": "fail", "unmet_criteria": ["no animal products"], "reasoning": "It adds bacon."}`)
	gatewayEnv(t, gw.URL)

	code, out, errOut := run(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Scenario Result: FAILED")
	assert.Contains(t, out, "no animal products")
	assert.Contains(t, out, "It adds bacon.")
	assert.Empty(t, errOut)
}

func TestExecute_RecordsHistory(t *testing.T) {
	gw := newFakeGateway(t, `{"verdict": "pass"}`)
	gatewayEnv(t, gw.URL)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("HISTORY_DB_PATH", dbPath)

	code, _, errOut := run(t)
	require.Equal(t, 0, code, errOut)
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestExecute_UnreachableGateway(t *testing.T) {
	gw := newFakeGateway(t, `{"verdict": "pass"}`)
	url := gw.URL
	gw.Close()
	gatewayEnv(t, url)

	code, _, errOut := run(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "gateway completion")
}

func TestExecute_StandardModeWithoutKey(t *testing.T) {
	gatewayEnv(t, "")
	t.Setenv("USE_CUSTOM_GATEWAY", "false")

	code, _, errOut := run(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "OPENAI_API_KEY")
}

func TestExecute_RejectsArguments(t *testing.T) {
	gatewayEnv(t, "http://127.0.0.1:1")
	code, _, _ := run(t, "extra")
	assert.Equal(t, 1, code)
}

func TestModels_Listed(t *testing.T) {
	gw := newFakeGateway(t, "")
	gw.models = []string{"llama-3-70b", "all-mpnet-base-v2", "Llama-3-SauerkrautLM"}
	gatewayEnv(t, gw.URL)

	code, out, errOut := run(t, "models")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Gateway: "+gw.URL)
	assert.Contains(t, out, "Chat models (2):\n  - Llama-3-SauerkrautLM (owned by gateway, created 2023-11-14)\n  - llama-3-70b")
	assert.Contains(t, out, "Embedding models (1):\n  - all-mpnet-base-v2 (dimension 3)")
	assert.NotContains(t, out, "Checking known")
}

func countPaths(paths []string, suffix string) int {
	n := 0
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			n++
		}
	}
	return n
}

func TestModels_EmbeddingFallback(t *testing.T) {
	gw := newFakeGateway(t, "")
	gw.models = []string{"llama-3-70b"}
	gw.badModels["text-embedding-3-large"] = true
	gatewayEnv(t, gw.URL)

	code, out, errOut := run(t, "models")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Embedding models (0):")
	assert.Contains(t, out, "Checking known embedding models")
	assert.Contains(t, out, "  all-mpnet-base-v2: available (dimension 3)\n")
	assert.Contains(t, out, "  text-embedding-3-large: not available\n")
	assert.NotContains(t, out, "Checking known chat models")

	_, paths := gw.requests()
	assert.Equal(t, len(knownEmbeddingModels), countPaths(paths, "/embeddings"))
}

func TestModels_ListingFailsChecksBoth(t *testing.T) {
	gw := newFakeGateway(t, "")
	gatewayEnv(t, gw.URL)

	code, out, errOut := run(t, "models")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Checking known chat models")
	assert.Contains(t, out, "Checking known embedding models")
	assert.Contains(t, out, "  text-embedding-ada-002: available (dimension 3)\n")

	_, paths := gw.requests()
	assert.Equal(t, len(knownChatModels), countPaths(paths, "/chat/completions"))
	assert.Equal(t, len(knownEmbeddingModels), countPaths(paths, "/embeddings"))
}

func TestModels_ChatFallback(t *testing.T) {
	gw := newFakeGateway(t, "")
	gw.badModels["gpt-4"] = true
	gatewayEnv(t, gw.URL)

	code, out, errOut := run(t, "models")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Could not list models")
	assert.Contains(t, out, "Checking known chat models")
	assert.Contains(t, out, "  gpt-4: not available\n")
	assert.Contains(t, out, "  gpt-4o-mini: available\n")

	_, paths := gw.requests()
	assert.Equal(t, len(knownChatModels), countPaths(paths, "/chat/completions"))
}

func TestModels_TestModel(t *testing.T) {
	gw := newFakeGateway(t, "")
	gw.models = []string{"llama-3-70b"}
	gatewayEnv(t, gw.URL)
	t.Setenv("TEST_MODEL", "llama-3-70b")

	code, out, errOut := run(t, "models")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Testing model llama-3-70b...\n  reply: Ingredients:")
}

func TestClassifyCheck(t *testing.T) {
	assert.Equal(t, available, classifyCheck("m", nil).status)
	assert.Equal(t, unavailable, classifyCheck("m", errors.New("The model m was not found")).status)

	r := classifyCheck("m", errors.New(strings.Repeat("timeout ", 20)))
	assert.Equal(t, maybeAvailable, r.status)
	assert.Len(t, r.detail, 53)
}

func TestIsEmbeddingModel(t *testing.T) {
	for _, id := range []string{"text-embedding-3-small", "all-mpnet-base-v2", "text-embedding-ada-002", "sentence-t5-base", "nomic-embed-text"} {
		assert.True(t, isEmbeddingModel(id), id)
	}
	for _, id := range []string{"gpt-4o-mini", "Llama-3-SauerkrautLM", "llama-3-70b"} {
		assert.False(t, isEmbeddingModel(id), id)
	}
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestCloseLogged(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	closeLogged(failingCloser{}, "history store", l)
	assert.Empty(t, buf.String())

	closeLogged(failingCloser{err: errors.New("database is locked")}, "history store", l)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "failed to close history store")
	assert.Contains(t, buf.String(), "database is locked")
}
