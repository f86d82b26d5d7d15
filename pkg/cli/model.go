package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/modelcheck"
	"github.com/deepbridge/deepbridge/pkg/pyenv"
)

// NewModelCmd creates the model command and its subcommands.
func NewModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the engine's judge model",
		Long: `Manage the judge model the engine uses for LLM-backed metrics. The model
is stored inside the engine environment, so it applies to every later run
until it is changed or unset.`,
	}

	cmd.AddCommand(newModelSetCmd())
	cmd.AddCommand(newModelUnsetCmd())
	cmd.AddCommand(newModelVerifyCmd())

	return cmd
}

func newModelSetCmd() *cobra.Command {
	var (
		baseURL string
		apiKey  string
	)

	engine := &engineOptions{}

	cmd := &cobra.Command{
		Use:   "set <model-name>",
		Short: "Point the engine at a judge model",
		Long: `Point the engine at a judge model, optionally on an OpenAI-compatible
endpoint:

  deepbridge model set gpt-4o-mini
  deepbridge model set llama3.1 --url http://localhost:11434/v1 --key ollama`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := pyenv.Model{
				Name:    args[0],
				BaseURL: baseURL,
				APIKey:  apiKey,
			}

			if err := engine.bridge().SetModel(context.Background(), model); err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("✓ Judge model set to %s\n", model.Name)
			if model.BaseURL != "" {
				fmt.Printf("  Endpoint: %s\n", model.BaseURL)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", getEnvOrDefault("OPENAI_BASE_URL", ""), "OpenAI-compatible base URL for the model")
	cmd.Flags().StringVar(&apiKey, "key", getEnvOrDefault("OPENAI_API_KEY", ""), "API key for the model endpoint")
	addEngineFlags(cmd, engine)

	return cmd
}

func newModelUnsetCmd() *cobra.Command {
	engine := &engineOptions{}

	cmd := &cobra.Command{
		Use:   "unset",
		Short: "Restore the engine's default judge model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.bridge().ResetModel(context.Background()); err != nil {
				return err
			}

			color.New(color.FgGreen).Println("✓ Judge model reset to the engine default")

			return nil
		},
	}

	addEngineFlags(cmd, engine)

	return cmd
}

func newModelVerifyCmd() *cobra.Command {
	var (
		baseURL string
		apiKey  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify <model-name>",
		Short: "Check that a judge model endpoint answers",
		Long: `Send a minimal chat completion to a judge model endpoint and report the
round trip. Useful before pointing the engine at a local model server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, err := modelcheck.New(pyenv.Model{
				Name:    args[0],
				BaseURL: baseURL,
				APIKey:  apiKey,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			report, err := checker.Verify(ctx)
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("✓ %s answered in %s\n", report.Model, report.Latency.Round(time.Millisecond))
			fmt.Printf("  Endpoint: %s\n", report.BaseURL)
			fmt.Printf("  Reply: %s\n", report.Reply)

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "OpenAI-compatible base URL for the model")
	cmd.Flags().StringVar(&apiKey, "key", getEnvOrDefault("OPENAI_API_KEY", ""), "API key for the model endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the endpoint")

	return cmd
}
