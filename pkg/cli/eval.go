package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/util"
)

// NewEvalCmd creates the eval command for scoring a single output.
func NewEvalCmd() *cobra.Command {
	var (
		outputFormat string
		threshold    float64

		prompt    util.Step
		retrieval util.Step
		actual    util.Step
		expected  util.Step
	)

	engine := &engineOptions{}

	cmd := &cobra.Command{
		Use:   "eval <metric>",
		Short: "Score a single LLM output",
		Long: fmt.Sprintf(`Score one LLM output with a single metric (%s).

Each input can be passed inline or read from a file:

  deepbridge eval relevancy --prompt "What is a pod?" --actual "A pod is..."
  deepbridge eval correctness --actual-file answer.txt --expected-file golden.txt

Exits with code 0 when the score meets the threshold, code 1 otherwise.`, metric.KindNames()),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := metric.ParseKind(args[0])
			if err != nil {
				return err
			}

			req := metric.Request{Kind: kind}

			if req.Prompt, err = stepValue(&prompt, "prompt"); err != nil {
				return err
			}
			if req.Context, err = stepValue(&retrieval, "context"); err != nil {
				return err
			}
			if req.ActualOutput, err = stepValue(&actual, "actual"); err != nil {
				return err
			}
			if req.ExpectedOutput, err = stepValue(&expected, "expected"); err != nil {
				return err
			}

			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}

			if missing := req.MissingFields(); len(missing) > 0 {
				return fmt.Errorf("%s needs the following inputs: %s", kind, strings.Join(missing, ", "))
			}

			ctx := context.Background()
			outcome, err := engine.bridge().Evaluate(ctx, req)
			if err != nil {
				if outcome != nil {
					printEngineStreams(outcome.Stdout, outcome.Stderr)
				}
				return err
			}

			passed := outcome.Score >= req.EffectiveThreshold()

			switch outputFormat {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(map[string]any{
					"metric":    kind,
					"score":     outcome.Score,
					"threshold": req.EffectiveThreshold(),
					"passed":    passed,
				}); err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}

			case "text":
				fmt.Printf("Metric: %s\n", kind)
				fmt.Printf("Score: %.4f\n", outcome.Score)
				if passed {
					color.New(color.FgGreen).Printf("Result: PASSED (threshold %.2f)\n", req.EffectiveThreshold())
				} else {
					color.New(color.FgRed).Printf("Result: FAILED (threshold %.2f)\n", req.EffectiveThreshold())
				}

			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}

			if !passed {
				// silent error (SilenceErrors: true), sets exit code 1
				return fmt.Errorf("score below threshold")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().Float64Var(&threshold, "threshold", metric.DefaultThreshold, "Score this run must reach to pass (0.0-1.0)")
	cmd.Flags().StringVar(&prompt.Inline, "prompt", "", "Prompt the output answers")
	cmd.Flags().StringVar(&prompt.File, "prompt-file", "", "File containing the prompt")
	cmd.Flags().StringVar(&retrieval.Inline, "context", "", "Retrieval context the output must stay grounded in")
	cmd.Flags().StringVar(&retrieval.File, "context-file", "", "File containing the retrieval context")
	cmd.Flags().StringVar(&actual.Inline, "actual", "", "Output under evaluation")
	cmd.Flags().StringVar(&actual.File, "actual-file", "", "File containing the output under evaluation")
	cmd.Flags().StringVar(&expected.Inline, "expected", "", "Reference output to compare against")
	cmd.Flags().StringVar(&expected.File, "expected-file", "", "File containing the reference output")
	addEngineFlags(cmd, engine)

	return cmd
}

// stepValue resolves an inline-or-file input pair to its text.
func stepValue(step *util.Step, name string) (string, error) {
	if step.IsEmpty() {
		return "", nil
	}

	value, err := step.GetValue()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	return value, nil
}

// printEngineStreams shows what the engine wrote when a run failed, so the
// cause is visible without digging through files.
func printEngineStreams(stdout, stderr string) {
	if trimmed := strings.TrimSpace(stdout); trimmed != "" {
		fmt.Fprintf(os.Stderr, "--- engine stdout ---\n%s\n", trimmed)
	}
	if trimmed := strings.TrimSpace(stderr); trimmed != "" {
		fmt.Fprintf(os.Stderr, "--- engine stderr ---\n%s\n", trimmed)
	}
}
