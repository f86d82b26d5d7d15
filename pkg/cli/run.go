package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/results"
	"github.com/deepbridge/deepbridge/pkg/task"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var (
		outputFormat string
		verbose      bool
		namePattern  string
		selector     string
		parallelism  int
	)

	engine := &engineOptions{}

	cmd := &cobra.Command{
		Use:   "run <suite-file>",
		Short: "Run an eval suite",
		Long: `Run every test in an eval suite file and score it through the evaluation
engine. Results are written to a JSON file next to the working directory so
they can be inspected later with view, summary, verify and diff.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suiteFile := args[0]

			// Load eval suite
			suite, err := task.FromFile(suiteFile)
			if err != nil {
				return fmt.Errorf("failed to load eval suite: %w", err)
			}

			if selector != "" {
				if err := eval.ApplySelector(suite, selector); err != nil {
					return err
				}
			}

			// Create runner
			var opts []eval.RunnerOption
			if parallelism > 0 {
				opts = append(opts, eval.WithParallelism(parallelism))
			}

			runner, err := eval.NewRunner(suite, engine.bridge(), opts...)
			if err != nil {
				return fmt.Errorf("failed to create suite runner: %w", err)
			}

			// Create progress display
			display := newProgressDisplay(verbose)

			// Run with progress
			ctx := context.Background()
			testResults, runErr := runner.RunWithProgress(ctx, namePattern, display.handleProgress)
			if runErr != nil && len(testResults) == 0 {
				return fmt.Errorf("eval failed: %w", runErr)
			}

			// Save results to JSON file
			outputFile := fmt.Sprintf("deepbridge-%s-out.json", suite.Metadata.Name)
			if err := saveResultsToFile(testResults, outputFile); err != nil {
				return fmt.Errorf("failed to save results to file: %w", err)
			}
			fmt.Printf("\n📄 Results saved to: %s\n", outputFile)

			// Display results
			if err := displayResults(testResults, outputFormat); err != nil {
				return fmt.Errorf("failed to display results: %w", err)
			}

			// Teardown failures surface after the results they accompany
			if runErr != nil {
				return fmt.Errorf("eval finished with errors: %w", runErr)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().StringVar(&namePattern, "filter", "", "Only run tests whose name matches this regular expression")
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "Only run tests matching this label selector (key=value,key2=value2)")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "Number of tests to score concurrently (0 = one at a time)")
	addEngineFlags(cmd, engine)

	return cmd
}

// progressDisplay handles interactive progress display
type progressDisplay struct {
	verbose bool
	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	cyan    *color.Color
	bold    *color.Color
}

func newProgressDisplay(verbose bool) *progressDisplay {
	return &progressDisplay{
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (d *progressDisplay) handleProgress(event eval.ProgressEvent) {
	switch event.Type {
	case eval.EventSuiteStart:
		d.bold.Println("\n=== Starting Evaluation ===")

	case eval.EventSuiteSetup:
		if d.verbose {
			fmt.Printf("  → Running setup hook...\n")
		}

	case eval.EventTestStart:
		fmt.Println()
		d.cyan.Printf("Test: %s\n", event.Test.TestName)
		if d.verbose {
			fmt.Printf("  Metric: %s\n", event.Test.Metric)
			fmt.Printf("  → Scoring...\n")
		}

	case eval.EventTestComplete:
		test := event.Test
		switch {
		case test.Error != "":
			d.red.Printf("  ✗ Test errored\n")
			fmt.Printf("    Error: %s\n", test.Error)
		case test.Passed:
			d.green.Printf("  ✓ Scored %.2f (threshold %.2f)\n", test.Score, test.Threshold)
		default:
			d.red.Printf("  ✗ Scored %.2f, below threshold %.2f\n", test.Score, test.Threshold)
		}

	case eval.EventSuiteTeardown:
		if d.verbose {
			fmt.Printf("  → Running teardown hook...\n")
		}

	case eval.EventSuiteComplete:
		fmt.Println()
		d.bold.Println("=== Evaluation Complete ===")
	}
}

func displayResults(testResults []*eval.TestResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(testResults)

	case "text":
		return displayTextResults(testResults)

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func displayTextResults(testResults []*eval.TestResult) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	fmt.Println()
	bold.Println("=== Results Summary ===")
	fmt.Println()

	testsTotal := len(testResults)
	testsPassed := 0
	testsErrored := 0

	for _, result := range testResults {
		if result.Error != "" {
			testsErrored++
		} else if result.Passed {
			testsPassed++
		}

		// Display individual result
		fmt.Printf("Test: %s\n", result.TestName)
		fmt.Printf("  Metric: %s\n", result.Metric)

		switch {
		case result.Error != "":
			yellow.Printf("  Status: ERROR\n")
			fmt.Printf("  Error: %s\n", result.Error)
		case result.Passed:
			green.Printf("  Status: PASSED\n")
			fmt.Printf("  Score: %.2f (threshold %.2f)\n", result.Score, result.Threshold)
		default:
			red.Printf("  Status: FAILED\n")
			fmt.Printf("  Score: %.2f (threshold %.2f)\n", result.Score, result.Threshold)
		}

		fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
		fmt.Println()
	}

	bold.Println("=== Overall Statistics ===")
	fmt.Printf("Total Tests: %d\n", testsTotal)

	if testsPassed == testsTotal {
		green.Printf("Tests Passed: %d/%d\n", testsPassed, testsTotal)
	} else {
		fmt.Printf("Tests Passed: %d/%d\n", testsPassed, testsTotal)
	}

	if testsErrored > 0 {
		yellow.Printf("Tests Errored: %d\n", testsErrored)
	}

	// Group by metric
	fmt.Println()
	bold.Println("=== Statistics by Metric ===")
	displayStatsByMetric(testResults, green)

	return nil
}

func displayStatsByMetric(testResults []*eval.TestResult, green *color.Color) {
	grouped := results.GroupByMetric(testResults)

	for _, kind := range metricDisplayOrder(grouped) {
		group := grouped[kind]

		total := len(group)
		passed := 0
		var scoreSum float64
		scored := 0

		for _, result := range group {
			if result.Error != "" {
				continue
			}
			if result.Passed {
				passed++
			}
			scoreSum += result.Score
			scored++
		}

		fmt.Printf("\n%s:\n", kind)

		if passed == total {
			green.Printf("  Tests: %d/%d\n", passed, total)
		} else {
			fmt.Printf("  Tests: %d/%d\n", passed, total)
		}

		if scored > 0 {
			fmt.Printf("  Average Score: %.2f\n", scoreSum/float64(scored))
		}
	}
}

// metricDisplayOrder returns the metric kinds present in grouped, canonical
// kinds first, anything unexpected after.
func metricDisplayOrder(grouped map[metric.Kind][]*eval.TestResult) []metric.Kind {
	ordered := make([]metric.Kind, 0, len(grouped))
	for _, kind := range metric.AllKinds() {
		if _, ok := grouped[kind]; ok {
			ordered = append(ordered, kind)
		}
	}

	for kind := range grouped {
		known := false
		for _, k := range ordered {
			if k == kind {
				known = true
				break
			}
		}
		if !known {
			ordered = append(ordered, kind)
		}
	}

	return ordered
}

func saveResultsToFile(testResults []*eval.TestResult, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(testResults); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}
