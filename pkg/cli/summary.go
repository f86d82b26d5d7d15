package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/results"
)

// SummaryOutput is the machine-readable shape of the summary command.
type SummaryOutput struct {
	ResultsFile  string        `json:"resultsFile"`
	TestsTotal   int           `json:"testsTotal"`
	TestsPassed  int           `json:"testsPassed"`
	TestsErrored int           `json:"testsErrored"`
	PassRate     float64       `json:"passRate"`
	AverageScore float64       `json:"averageScore"`
	Tests        []TestSummary `json:"tests"`
}

// TestSummary is one test's line in the summary.
type TestSummary struct {
	Name      string      `json:"name"`
	Metric    metric.Kind `json:"metric"`
	Score     float64     `json:"score"`
	Threshold float64     `json:"threshold"`
	Passed    bool        `json:"passed"`
	Error     string      `json:"error,omitempty"`
}

// NewSummaryCmd creates the summary command
func NewSummaryCmd() *cobra.Command {
	var (
		testFilter   string
		outputFormat string
		githubOutput bool
	)

	cmd := &cobra.Command{
		Use:   "summary <results-file>",
		Short: "Summarize evaluation results",
		Long: `Summarize a results file as a compact report: one line per test plus
overall and per-metric statistics.

Use --github-output in CI to append a markdown table to the workflow's step
summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testResults, err := results.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load results file: %w", err)
			}

			filtered := results.Filter(testResults, testFilter)
			summary := buildSummaryOutput(args[0], filtered)

			if githubOutput {
				return outputGitHubSummary(summary)
			}

			switch outputFormat {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(summary)

			case "text":
				outputTextSummary(filtered, summary)
				return nil

			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVar(&testFilter, "test", "", "Only include tests whose name contains this value")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&githubOutput, "github-output", false, "Emit a markdown summary for GitHub Actions ($GITHUB_STEP_SUMMARY)")

	return cmd
}

func buildSummaryOutput(resultsFile string, testResults []*eval.TestResult) SummaryOutput {
	stats := results.CalculateStats(resultsFile, testResults)

	summary := SummaryOutput{
		ResultsFile:  stats.ResultsFile,
		TestsTotal:   stats.TestsTotal,
		TestsPassed:  stats.TestsPassed,
		TestsErrored: stats.TestsErrored,
		PassRate:     stats.PassRate,
		AverageScore: stats.AverageScore,
		Tests:        make([]TestSummary, 0, len(testResults)),
	}

	for _, result := range testResults {
		summary.Tests = append(summary.Tests, TestSummary{
			Name:      result.TestName,
			Metric:    result.Metric,
			Score:     result.Score,
			Threshold: result.Threshold,
			Passed:    result.Passed,
			Error:     result.Error,
		})
	}

	return summary
}

func outputTextSummary(testResults []*eval.TestResult, summary SummaryOutput) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	_, _ = bold.Println("=== Evaluation Summary ===")
	fmt.Println()

	for _, result := range testResults {
		switch {
		case result.Error != "":
			_, _ = yellow.Printf("⚠ %s (%s)\n", result.TestName, result.Metric)
			fmt.Printf("    %s\n", result.Error)
		case result.Passed:
			_, _ = green.Printf("✓ %s (%s): %.2f\n", result.TestName, result.Metric, result.Score)
		default:
			_, _ = red.Printf("✗ %s (%s): %.2f\n", result.TestName, result.Metric, result.Score)
			if reason := results.FailureReason(result); reason != "" {
				fmt.Printf("    %s\n", reason)
			}
		}
	}

	fmt.Println()
	fmt.Printf("Tests Passed: %d/%d (%.1f%%)\n", summary.TestsPassed, summary.TestsTotal, summary.PassRate*100)
	if summary.TestsErrored > 0 {
		_, _ = yellow.Printf("Tests Errored: %d\n", summary.TestsErrored)
	}
	if summary.TestsTotal > summary.TestsErrored {
		fmt.Printf("Average Score: %.2f\n", summary.AverageScore)
	}

	fmt.Println()
	_, _ = bold.Println("=== Statistics by Metric ===")
	displayStatsByMetric(testResults, green)
}

func outputGitHubSummary(summary SummaryOutput) error {
	var b strings.Builder

	b.WriteString("### 📊 Evaluation Summary\n\n")
	fmt.Fprintf(&b, "**%d/%d** tests passed (%.1f%%), average score **%.2f**\n\n",
		summary.TestsPassed, summary.TestsTotal, summary.PassRate*100, summary.AverageScore)

	b.WriteString("| Test | Metric | Score | Threshold | Status |\n")
	b.WriteString("|------|--------|-------|-----------|--------|\n")
	for _, test := range summary.Tests {
		score := fmt.Sprintf("%.2f", test.Score)
		status := "✅"
		switch {
		case test.Error != "":
			score = "-"
			status = "⚠️ error"
		case !test.Passed:
			status = "❌"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f | %s |\n", test.Name, test.Metric, score, test.Threshold, status)
	}

	// Inside GitHub Actions the summary lands on the workflow page;
	// elsewhere it goes to stdout so the markdown can be piped onward.
	if path := os.Getenv("GITHUB_STEP_SUMMARY"); path != "" {
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open step summary file: %w", err)
		}
		defer file.Close()

		if _, err := file.WriteString(b.String()); err != nil {
			return fmt.Errorf("failed to write step summary: %w", err)
		}

		return nil
	}

	fmt.Print(b.String())
	return nil
}
