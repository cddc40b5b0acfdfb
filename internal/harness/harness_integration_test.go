//go:build integration

package harness_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Elektra-V/scenario-framework/internal/config"
	"github.com/Elektra-V/scenario-framework/internal/harness"
	"github.com/Elektra-V/scenario-framework/internal/scenario"
)

// TestLiveScenarios runs the catalog against the configured backend. It needs
// network access and OPENAI_API_KEY (or a gateway configured via .env).
func TestLiveScenarios(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	if cfg.OpenAIAPIKey == "" && !cfg.UseCustomGateway {
		t.Skip("OPENAI_API_KEY not set")
	}

	cat, err := harness.LoadCatalog()
	require.NoError(t, err)
	participants, err := harness.NewParticipants(cfg)
	require.NoError(t, err)
	runner := scenario.NewRunner()

	for _, def := range cat.Scenarios {
		t.Run(def.Name, func(t *testing.T) {
			recipeAgent, err := harness.NewRecipeAgent(cfg)
			require.NoError(t, err)

			spec, err := harness.BuildDefinition(def, recipeAgent, participants)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			res, err := harness.RunScenario(ctx, runner, spec)
			require.NoError(t, err)
			require.True(t, res.Succeeded(), harness.FailureMessage(res))
		})
	}
}

// TestLiveVegetarianDinner is the reference run: standard API, gpt-4o-mini, five turns.
func TestLiveVegetarianDinner(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	if cfg.OpenAIAPIKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
	cfg.UseCustomGateway = false
	cfg.AgentModel = "gpt-4o-mini"

	recipeAgent, err := harness.NewRecipeAgent(cfg)
	require.NoError(t, err)
	participants, err := harness.NewParticipants(cfg)
	require.NoError(t, err)

	spec, err := harness.BuildScenario(
		"quick vegetarian dinner",
		"The user is hungry after work and wants a quick vegetarian dinner.",
		recipeAgent,
		5,
		[]string{
			"provides ingredients list",
			"provides numbered steps",
			"no animal products",
			"at most one follow-up question",
		},
		participants,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := harness.RunScenario(ctx, scenario.NewRunner(), spec)
	require.NoError(t, err)
	require.True(t, res.Succeeded(), harness.FailureMessage(res))
}
