package llm

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/Elektra-V/scenario-framework/internal/config"
	"github.com/Elektra-V/scenario-framework/internal/logger"
)

// Backend names.
const (
	BackendOpenAI  = "openai"
	BackendGateway = "gateway"
)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a backend.
type Option func(*options)

// WithHTTPClient sets the HTTP client whose transport is wrapped.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{httpClient: &http.Client{}, logger: logger.L}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// wrapHTTPClient returns a copy of c whose transport goes through t.
func wrapHTTPClient(c *http.Client, t *transport) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	t.base = base
	wrapped := *c
	wrapped.Transport = t
	return &wrapped
}

// NewBackend selects the backend described by cfg.
func NewBackend(cfg config.BackendConfig, opts ...Option) (Backend, error) {
	if cfg.UseGateway {
		return NewGatewayBackend(cfg.Gateway, opts...), nil
	}
	return NewStandardBackend(cfg.OpenAIAPIKey, opts...)
}

// StandardBackend talks to the hosted OpenAI API using bearer key auth.
type StandardBackend struct {
	client *openai.Client
}

// NewStandardBackend creates a backend for api.openai.com.
func NewStandardBackend(apiKey string, opts ...Option) (*StandardBackend, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Field: "OPENAI_API_KEY", Reason: "is required when the custom gateway is disabled"}
	}
	o := buildOptions(opts)

	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = wrapHTTPClient(o.httpClient, &transport{})

	o.logger.Debug("openai backend configured", "base_url", cfg.BaseURL)
	return &StandardBackend{client: openai.NewClientWithConfig(cfg)}, nil
}

// Name returns the backend identifier.
func (b *StandardBackend) Name() string { return BackendOpenAI }

// Client returns the underlying go-openai client.
func (b *StandardBackend) Client() Client { return b.client }

// GatewayBackend talks to a self-hosted OpenAI-compatible gateway protected by
// HTTP Basic authentication.
type GatewayBackend struct {
	client   *openai.Client
	baseURL  string
	hasBasic bool
}

// NewGatewayBackend creates a gateway backend. It never fails: missing
// username or password leaves requests without an Authorization header, and
// a missing base URL surfaces as a CompletionError on the first call.
func NewGatewayBackend(gw config.GatewayConfig, opts ...Option) *GatewayBackend {
	o := buildOptions(opts)

	apiKey := gw.APIKey
	if apiKey == "" {
		apiKey = config.PlaceholderAPIKey
	}

	var authorization string
	if gw.Username != "" && gw.Password != "" {
		authorization = BasicAuthHeader(gw.Username, gw.Password)
	} else {
		o.logger.Warn("gateway credentials incomplete; requests are sent without an Authorization header",
			"username_set", gw.Username != "", "password_set", gw.Password != "")
	}
	if gw.BaseURL == "" {
		o.logger.Warn("gateway base URL is empty; completions will fail")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = gw.BaseURL
	cfg.HTTPClient = wrapHTTPClient(o.httpClient, &transport{overrideAuth: true, authorization: authorization})

	o.logger.Debug("gateway backend configured", "base_url", gw.BaseURL, "basic_auth", authorization != "")
	return &GatewayBackend{
		client:   openai.NewClientWithConfig(cfg),
		baseURL:  gw.BaseURL,
		hasBasic: authorization != "",
	}
}

// Name returns the backend identifier.
func (b *GatewayBackend) Name() string { return BackendGateway }

// Client returns the underlying go-openai client.
func (b *GatewayBackend) Client() Client { return b.client }

// BaseURL returns the gateway endpoint base.
func (b *GatewayBackend) BaseURL() string { return b.baseURL }

// HasBasicAuth reports whether requests carry a Basic Authorization header.
func (b *GatewayBackend) HasBasicAuth() bool { return b.hasBasic }

// BasicAuthHeader returns the value of an HTTP Basic Authorization header.
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
