package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/results"
)

// DiffResult holds the comparison between two evaluation runs
type DiffResult struct {
	BaseStats    results.Stats
	HeadStats    results.Stats
	Regressions  []TestDiff
	Improvements []TestDiff
	New          []TestDiff
	Removed      []TestDiff
}

// TestDiff holds the diff for a single test
type TestDiff struct {
	TestName      string
	BasePassed    bool
	HeadPassed    bool
	BaseScore     float64
	HeadScore     float64
	FailureReason string
}

// NewDiffCmd creates the diff command
func NewDiffCmd() *cobra.Command {
	var outputFormat string
	var baseFile string
	var currentFile string

	cmd := &cobra.Command{
		Use:   "diff --base <results-file> --current <results-file>",
		Short: "Compare two evaluation results",
		Long: `Compare evaluation results between two runs (e.g., main vs PR).

Shows regressions, improvements, and overall pass rate changes.
Useful for posting on pull requests to show impact of changes.

Example:
  deepbridge diff --base results-main.json --current results-pr.json
  deepbridge diff --base results-main.json --current results-pr.json --output markdown`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseResults, err := results.Load(baseFile)
			if err != nil {
				return fmt.Errorf("failed to load base results: %w", err)
			}

			currentResults, err := results.Load(currentFile)
			if err != nil {
				return fmt.Errorf("failed to load current results: %w", err)
			}

			diff := calculateDiff(baseFile, currentFile, baseResults, currentResults)

			switch outputFormat {
			case "text":
				outputTextDiff(diff)
			case "markdown":
				outputMarkdownDiff(diff)
			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&baseFile, "base", "", "Base results file (e.g., main branch)")
	cmd.Flags().StringVar(&currentFile, "current", "", "Current results file (e.g., PR branch)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, markdown)")

	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

func calculateDiff(baseFile, currentFile string, baseResults, currentResults []*eval.TestResult) DiffResult {
	diff := DiffResult{
		BaseStats:    results.CalculateStats(baseFile, baseResults),
		HeadStats:    results.CalculateStats(currentFile, currentResults),
		Regressions:  make([]TestDiff, 0),
		Improvements: make([]TestDiff, 0),
		New:          make([]TestDiff, 0),
		Removed:      make([]TestDiff, 0),
	}

	baseMap := make(map[string]*eval.TestResult)
	for _, r := range baseResults {
		baseMap[r.TestName] = r
	}

	currentMap := make(map[string]*eval.TestResult)
	for _, r := range currentResults {
		currentMap[r.TestName] = r
	}

	for _, current := range currentResults {
		base, exists := baseMap[current.TestName]
		if !exists {
			diff.New = append(diff.New, TestDiff{
				TestName:   current.TestName,
				HeadPassed: current.Passed,
				HeadScore:  current.Score,
			})
			continue
		}

		testDiff := TestDiff{
			TestName:      current.TestName,
			BasePassed:    base.Passed,
			HeadPassed:    current.Passed,
			BaseScore:     base.Score,
			HeadScore:     current.Score,
			FailureReason: results.FailureReason(current),
		}

		if base.Passed && !current.Passed {
			diff.Regressions = append(diff.Regressions, testDiff)
		} else if !base.Passed && current.Passed {
			diff.Improvements = append(diff.Improvements, testDiff)
		}
	}

	for _, base := range baseResults {
		if _, exists := currentMap[base.TestName]; !exists {
			diff.Removed = append(diff.Removed, TestDiff{
				TestName:   base.TestName,
				BasePassed: base.Passed,
				BaseScore:  base.Score,
			})
		}
	}

	return diff
}

func outputTextDiff(diff DiffResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	_, _ = bold.Println("=== Evaluation Diff ===")
	fmt.Println()

	// Regressions
	if len(diff.Regressions) > 0 {
		_, _ = red.Printf("Regressions (%d):\n", len(diff.Regressions))
		for _, r := range diff.Regressions {
			_, _ = red.Printf("  ✗ %s: PASSED → FAILED (score %.2f → %.2f)\n", r.TestName, r.BaseScore, r.HeadScore)
			if r.FailureReason != "" {
				fmt.Printf("      %s\n", r.FailureReason)
			}
		}
		fmt.Println()
	}

	// Improvements
	if len(diff.Improvements) > 0 {
		_, _ = green.Printf("Improvements (%d):\n", len(diff.Improvements))
		for _, r := range diff.Improvements {
			_, _ = green.Printf("  ✓ %s: FAILED → PASSED (score %.2f → %.2f)\n", r.TestName, r.BaseScore, r.HeadScore)
		}
		fmt.Println()
	}

	// New tests
	if len(diff.New) > 0 {
		_, _ = yellow.Printf("New Tests (%d):\n", len(diff.New))
		for _, r := range diff.New {
			if r.HeadPassed {
				_, _ = green.Printf("  + %s: PASSED\n", r.TestName)
			} else {
				_, _ = red.Printf("  + %s: FAILED\n", r.TestName)
			}
		}
		fmt.Println()
	}

	// Removed tests
	if len(diff.Removed) > 0 {
		_, _ = yellow.Printf("Removed Tests (%d):\n", len(diff.Removed))
		for _, r := range diff.Removed {
			fmt.Printf("  - %s\n", r.TestName)
		}
		fmt.Println()
	}

	// Summary table
	_, _ = bold.Println("=== Summary ===")
	fmt.Println()

	passRateChange := diff.HeadStats.PassRate - diff.BaseStats.PassRate
	scoreChange := diff.HeadStats.AverageScore - diff.BaseStats.AverageScore

	fmt.Printf("             Base        Head        Change\n")
	fmt.Printf("Tests:       %d/%-8d %d/%-8d ",
		diff.BaseStats.TestsPassed, diff.BaseStats.TestsTotal,
		diff.HeadStats.TestsPassed, diff.HeadStats.TestsTotal)
	printChange(passRateChange)

	fmt.Printf("Avg score:   %-10.2f %-10.2f ",
		diff.BaseStats.AverageScore, diff.HeadStats.AverageScore)
	printScoreChange(scoreChange)
}

func printChange(change float64) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if change > 0 {
		_, _ = green.Printf("+%.1f%%\n", change*100)
	} else if change < 0 {
		_, _ = red.Printf("%.1f%%\n", change*100)
	} else {
		fmt.Println("0.0%")
	}
}

func printScoreChange(change float64) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if change > 0 {
		_, _ = green.Printf("+%.2f\n", change)
	} else if change < 0 {
		_, _ = red.Printf("%.2f\n", change)
	} else {
		fmt.Println("0.00")
	}
}

func outputMarkdownDiff(diff DiffResult) {
	passRateChange := diff.HeadStats.PassRate - diff.BaseStats.PassRate
	scoreChange := diff.HeadStats.AverageScore - diff.BaseStats.AverageScore

	fmt.Println("### 📊 Evaluation Results")
	fmt.Println()
	fmt.Println("| Metric | Base | Head | Change |")
	fmt.Println("|--------|------|------|--------|")
	fmt.Printf("| Tests | %d/%d (%.1f%%) | %d/%d (%.1f%%) | %s |\n",
		diff.BaseStats.TestsPassed, diff.BaseStats.TestsTotal, diff.BaseStats.PassRate*100,
		diff.HeadStats.TestsPassed, diff.HeadStats.TestsTotal, diff.HeadStats.PassRate*100,
		formatChangeMarkdown(passRateChange*100, "%"))
	fmt.Printf("| Average score | %.2f | %.2f | %s |\n",
		diff.BaseStats.AverageScore, diff.HeadStats.AverageScore,
		formatChangeMarkdown(scoreChange, ""))

	// Regressions
	if len(diff.Regressions) > 0 {
		fmt.Println()
		fmt.Printf("#### ❌ Regressions (%d)\n", len(diff.Regressions))
		for _, r := range diff.Regressions {
			fmt.Printf("- `%s`: PASSED → FAILED (score %.2f → %.2f)", r.TestName, r.BaseScore, r.HeadScore)
			if r.FailureReason != "" {
				fmt.Printf(" - %s", r.FailureReason)
			}
			fmt.Println()
		}
	}

	// Improvements
	if len(diff.Improvements) > 0 {
		fmt.Println()
		fmt.Printf("#### ✅ Improvements (%d)\n", len(diff.Improvements))
		for _, r := range diff.Improvements {
			fmt.Printf("- `%s`: FAILED → PASSED (score %.2f → %.2f)\n", r.TestName, r.BaseScore, r.HeadScore)
		}
	}

	// New tests
	if len(diff.New) > 0 {
		fmt.Println()
		fmt.Printf("#### 🆕 New Tests (%d)\n", len(diff.New))
		for _, r := range diff.New {
			status := "PASSED"
			if !r.HeadPassed {
				status = "FAILED"
			}
			fmt.Printf("- `%s`: %s\n", r.TestName, status)
		}
	}

	// Removed tests
	if len(diff.Removed) > 0 {
		fmt.Println()
		fmt.Printf("#### 🗑️ Removed Tests (%d)\n", len(diff.Removed))
		for _, r := range diff.Removed {
			fmt.Printf("- `%s`\n", r.TestName)
		}
	}
}

func formatChangeMarkdown(change float64, unit string) string {
	if change > 0 {
		return fmt.Sprintf("🟢 +%.2f%s", change, unit)
	} else if change < 0 {
		return fmt.Sprintf("🔴 %.2f%s", change, unit)
	}
	return fmt.Sprintf("➖ 0.00%s", unit)
}
