// Package cli implements the deepbridge command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/bridge"
	"github.com/deepbridge/deepbridge/pkg/pyenv"
)

// NewRootCmd creates the root deepbridge command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deepbridge",
		Short: "LLM evaluation bridge",
		Long: `deepbridge scores LLM outputs by driving an isolated evaluation engine.
It provisions the engine's environment on demand, evaluates single outputs or
whole eval suites, and renders, verifies and compares the resulting reports.`,
	}

	// Add subcommands
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewEvalCmd())
	rootCmd.AddCommand(NewSuiteCmd())
	rootCmd.AddCommand(NewProvisionCmd())
	rootCmd.AddCommand(NewModelCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewViewCmd())
	rootCmd.AddCommand(NewSummaryCmd())
	rootCmd.AddCommand(NewVerifyCmd())
	rootCmd.AddCommand(NewDiffCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// engineOptions collects the flags shared by every command that talks to
// the evaluation engine.
type engineOptions struct {
	python        string
	envPath       string
	autoProvision bool
	verbosity     string
	model         string
	modelURL      string
	modelKey      string
}

// addEngineFlags registers the shared engine flags on cmd, filling opts
// when the command runs.
func addEngineFlags(cmd *cobra.Command, opts *engineOptions) {
	cmd.Flags().StringVar(&opts.python, "python", getEnvOrDefault("DEEPBRIDGE_PYTHON", ""), "Host Python interpreter used to create the engine environment")
	cmd.Flags().StringVar(&opts.envPath, "env-path", getEnvOrDefault("DEEPBRIDGE_ENV_PATH", ""), "Engine environment directory")
	cmd.Flags().BoolVar(&opts.autoProvision, "auto-provision", true, "Create the engine environment on first use when it is missing")
	cmd.Flags().StringVar(&opts.verbosity, "verbosity", getEnvOrDefault("DEEPBRIDGE_VERBOSITY", "normal"), "Progress output level (quiet, normal, verbose)")
	cmd.Flags().StringVar(&opts.model, "model", getEnvOrDefault("DEEPBRIDGE_MODEL", ""), "Judge model for LLM-backed metrics (empty keeps the engine default)")
	cmd.Flags().StringVar(&opts.modelURL, "model-url", getEnvOrDefault("OPENAI_BASE_URL", ""), "OpenAI-compatible base URL for the judge model")
	cmd.Flags().StringVar(&opts.modelKey, "model-key", getEnvOrDefault("OPENAI_API_KEY", ""), "API key for the judge model endpoint")
}

func (o *engineOptions) config() bridge.Config {
	cfg := bridge.Config{
		Python:        o.python,
		EnvPath:       o.envPath,
		AutoProvision: o.autoProvision,
		Verbosity:     bridge.Verbosity(o.verbosity),
	}

	if o.model != "" {
		cfg.Model = &pyenv.Model{
			Name:    o.model,
			BaseURL: o.modelURL,
			APIKey:  o.modelKey,
		}
	}

	return cfg
}

func (o *engineOptions) bridge() *bridge.Bridge {
	return bridge.New(o.config())
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
