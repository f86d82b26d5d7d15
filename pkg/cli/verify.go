package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/results"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var passRateThreshold float64
	var scoreThreshold float64

	cmd := &cobra.Command{
		Use:   "verify <results-file>",
		Short: "Verify evaluation results meet thresholds",
		Long: `Verify that evaluation results meet minimum pass rate and average score
thresholds.

Exits with code 0 if all thresholds are met, code 1 otherwise.
Use 'deepbridge summary' to view detailed results.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resultsFile := args[0]

			testResults, err := results.Load(resultsFile)
			if err != nil {
				return fmt.Errorf("failed to load results file: %w", err)
			}

			stats := results.CalculateStats(resultsFile, testResults)

			passRateMet := stats.PassRate >= passRateThreshold
			// If every test errored there are no scores to average, so skip
			// the score threshold check
			scoreMet := stats.TestsTotal == stats.TestsErrored || stats.AverageScore >= scoreThreshold
			passed := passRateMet && scoreMet

			outputVerifyResults(stats, passRateThreshold, scoreThreshold, passRateMet, scoreMet, passed)

			if !passed {
				// silent error (SilenceErrors: true), sets exit code 1
				return fmt.Errorf("thresholds not met")
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&passRateThreshold, "pass-rate", 0.0, "Minimum test pass rate (0.0-1.0)")
	cmd.Flags().Float64Var(&scoreThreshold, "score", 0.0, "Minimum average score (0.0-1.0)")

	return cmd
}

func outputVerifyResults(stats results.Stats, passRateThreshold, scoreThreshold float64, passRateMet, scoreMet, passed bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	_, _ = bold.Println("=== Threshold Verification ===")
	fmt.Println()

	fmt.Printf("Results file: %s\n", stats.ResultsFile)
	fmt.Println()

	if passRateMet {
		_, _ = green.Printf("✓ Pass rate: %.1f%% (threshold: %.1f%%)\n", stats.PassRate*100, passRateThreshold*100)
	} else {
		_, _ = red.Printf("✗ Pass rate: %.1f%% (threshold: %.1f%%)\n", stats.PassRate*100, passRateThreshold*100)
	}
	fmt.Printf("  Tests passed: %d/%d\n", stats.TestsPassed, stats.TestsTotal)
	if stats.TestsErrored > 0 {
		fmt.Printf("  Tests errored: %d\n", stats.TestsErrored)
	}

	if stats.TestsTotal == stats.TestsErrored {
		fmt.Println("  Average score: N/A (no test produced a score)")
	} else if scoreMet {
		_, _ = green.Printf("✓ Average score: %.2f (threshold: %.2f)\n", stats.AverageScore, scoreThreshold)
	} else {
		_, _ = red.Printf("✗ Average score: %.2f (threshold: %.2f)\n", stats.AverageScore, scoreThreshold)
	}

	fmt.Println()
	if passed {
		_, _ = green.Println("Result: PASSED")
	} else {
		_, _ = red.Println("Result: FAILED")
	}
}
