package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the harness configuration. It is built once at process start and passed by reference.
type Config struct {
	UseCustomGateway   bool          `mapstructure:"-"`
	OpenAIAPIKey       string        `mapstructure:"openai_api_key"`
	Gateway            GatewayConfig `mapstructure:",squash"`
	CustomModel        string        `mapstructure:"custom_model"`
	AgentModel         string        `mapstructure:"agent_model"`
	UserSimulatorModel string        `mapstructure:"user_simulator_model"`
	JudgeModel         string        `mapstructure:"judge_model"`
	TestModel          string        `mapstructure:"test_model"`
	HistoryDBPath      string        `mapstructure:"history_db_path"`
	LogLevel           string        `mapstructure:"log_level"`
}

// GatewayConfig holds the credentials of a self-hosted OpenAI-compatible gateway.
type GatewayConfig struct {
	BaseURL  string `mapstructure:"custom_gateway_base_url"`
	APIKey   string `mapstructure:"custom_gateway_api_key"`
	Username string `mapstructure:"genai_username"`
	Password string `mapstructure:"genai_password"`
}

// BackendConfig selects and parameterizes the backend of a single agent.
type BackendConfig struct {
	UseGateway   bool
	Model        string
	OpenAIAPIKey string
	Gateway      GatewayConfig
}

// PlaceholderAPIKey is sent to gateways that authenticate with Basic auth only.
const PlaceholderAPIKey = "xxxx"

var defaults = map[string]any{
	"use_custom_gateway":      false,
	"openai_api_key":          "",
	"custom_gateway_base_url": "",
	"custom_gateway_api_key":  PlaceholderAPIKey,
	"genai_username":          "",
	"genai_password":          "",
	"custom_model":            "Llama-3.3-70B-Instruct",
	"agent_model":             "gpt-4o-mini",
	"user_simulator_model":    "gpt-4o-mini",
	"judge_model":             "gpt-4o",
	"test_model":              "",
	"history_db_path":         "",
	"log_level":               "info",
}

// Load reads an optional dotenv file (ENV_FILE, or .env in the working
// directory) and overlays the process environment on top of it.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", strings.ToUpper(key), err)
		}
	}

	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Only "true" enables the gateway; "1", "yes" and typos leave it off.
	cfg.UseCustomGateway = strings.EqualFold(strings.TrimSpace(v.GetString("use_custom_gateway")), "true")
	return &cfg, nil
}

// Backend returns the backend configuration of the agent under test.
func (c *Config) Backend() BackendConfig {
	model := c.AgentModel
	if c.UseCustomGateway {
		model = c.CustomModel
	}
	return BackendConfig{
		UseGateway:   c.UseCustomGateway,
		Model:        model,
		OpenAIAPIKey: c.OpenAIAPIKey,
		Gateway:      c.Gateway,
	}
}

// ParticipantBackend returns the backend used by the simulated user and the
// judge. They run on OpenAI whenever a key is available, otherwise they share
// the agent's gateway.
func (c *Config) ParticipantBackend(model string) BackendConfig {
	bc := c.Backend()
	bc.Model = model
	if c.OpenAIAPIKey != "" {
		bc.UseGateway = false
	}
	return bc
}
