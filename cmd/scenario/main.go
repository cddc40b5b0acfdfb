// Command scenario runs the recipe agent through a simulated conversation and
// reports whether the judge accepted it. It takes no flags; everything is read
// from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Elektra-V/scenario-framework/internal/config"
	"github.com/Elektra-V/scenario-framework/internal/harness"
	"github.com/Elektra-V/scenario-framework/internal/history"
	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/logger"
	"github.com/Elektra-V/scenario-framework/internal/scenario"
)

// errScenarioFailed signals a completed run whose criteria were not met.
// The report has already been printed, so main only sets the exit code.
var errScenarioFailed = errors.New("scenario failed")

var rule = strings.Repeat("=", 60)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...llm.Option) int {
	cmd := rootCmd(opts...)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errScenarioFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func rootCmd(opts ...llm.Option) *cobra.Command {
	runE := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runScenario(cmd.Context(), cmd.OutOrStdout(), cfg, opts...)
	}

	root := &cobra.Command{
		Use:           "scenario",
		Short:         "Run the recipe agent scenario",
		Long:          "Runs the vegetarian recipe scenario against the configured backend (OpenAI or custom gateway).",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the vegetarian recipe scenario (default)",
		Args:  cobra.NoArgs,
		RunE:  runE,
	})
	root.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List chat and embedding models available on the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return listModels(cmd.Context(), cmd.OutOrStdout(), cfg, opts...)
		},
	})
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func runScenario(ctx context.Context, out io.Writer, cfg *config.Config, opts ...llm.Option) error {
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Recipe Agent Scenario Test")
	fmt.Fprintln(out, rule)

	bc := cfg.Backend()
	if bc.UseGateway {
		fmt.Fprintf(out, "Using custom gateway with model: %s\n", bc.Model)
	} else {
		fmt.Fprintf(out, "Using OpenAI with model: %s\n", bc.Model)
	}

	catalog, err := harness.LoadCatalog()
	if err != nil {
		return err
	}
	def, ok := catalog.Scenario(harness.ScenarioVegetarian)
	if !ok {
		return fmt.Errorf("scenario %q missing from catalog", harness.ScenarioVegetarian)
	}

	recipeAgent, err := harness.NewRecipeAgent(cfg, opts...)
	if err != nil {
		return err
	}
	participants, err := harness.NewParticipants(cfg, opts...)
	if err != nil {
		return err
	}
	spec, err := harness.BuildDefinition(def, recipeAgent, participants)
	if err != nil {
		return err
	}

	var runnerOpts []scenario.RunnerOption
	if cfg.HistoryDBPath != "" {
		store := history.Open(cfg.HistoryDBPath, logger.L)
		defer closeLogged(store, "history store", logger.L)
		runnerOpts = append(runnerOpts, scenario.WithRecorder(store))
	}

	fmt.Fprintln(out, "\nRunning scenario...")
	fmt.Fprintln(out, strings.Repeat("-", 60))

	res, err := harness.RunScenario(ctx, scenario.NewRunner(runnerOpts...), spec)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprint(out, harness.Summarize(res))
	fmt.Fprintln(out, rule)

	if !res.Succeeded() {
		return errScenarioFailed
	}
	return nil
}

// closeLogged closes c and logs a failure instead of dropping it.
func closeLogged(c io.Closer, what string, l *slog.Logger) {
	if err := c.Close(); err != nil {
		l.Warn("failed to close "+what, "error", err)
	}
}
