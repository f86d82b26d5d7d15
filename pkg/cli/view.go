package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/results"
	"github.com/deepbridge/deepbridge/pkg/util"
)

const (
	defaultMaxStreamLines = 8
	defaultMaxLineLength  = 100
)

// NewViewCmd creates the view command for rendering eval results.
func NewViewCmd() *cobra.Command {
	var (
		testFilter     string
		metricFilter   string
		failedOnly     bool
		showStreams    = true
		maxStreamLines = defaultMaxStreamLines
		maxLineLength  = defaultMaxLineLength
	)

	cmd := &cobra.Command{
		Use:   "view <results-file>",
		Short: "Pretty-print evaluation results from a JSON file",
		Long: `Render the JSON output produced by "deepbridge run" in a human-friendly
format.

Examples:
  deepbridge view deepbridge-chatbot-quality-out.json
  deepbridge view --failed --metric relevancy results.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testResults, err := results.Load(args[0])
			if err != nil {
				return err
			}

			filtered := results.Filter(testResults, testFilter)
			if metricFilter != "" {
				kind, err := metric.ParseKind(metricFilter)
				if err != nil {
					return err
				}
				filtered = results.FilterByMetric(filtered, kind)
			}
			if failedOnly {
				filtered = keepFailed(filtered)
			}

			if len(filtered) == 0 {
				if testFilter == "" && metricFilter == "" && !failedOnly {
					return errors.New("no tests found in results")
				}
				return errors.New("no tests matched the given filters")
			}

			for idx, result := range filtered {
				if idx > 0 {
					fmt.Println()
				}
				printTestResult(result, viewOptions{
					showStreams:    showStreams,
					maxStreamLines: maxStreamLines,
					maxLineLength:  maxLineLength,
				})
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&testFilter, "test", "", "Only show tests whose name contains this value")
	cmd.Flags().StringVar(&metricFilter, "metric", "", "Only show tests scored with this metric")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show tests that failed or errored")
	cmd.Flags().BoolVar(&showStreams, "streams", showStreams, "Include the engine's stdout and stderr for failed tests")
	cmd.Flags().IntVar(&maxStreamLines, "max-stream-lines", maxStreamLines, "Maximum lines to display per engine stream (0 = unlimited)")
	cmd.Flags().IntVar(&maxLineLength, "max-line-length", maxLineLength, "Maximum characters per displayed line (0 = unlimited)")

	return cmd
}

type viewOptions struct {
	showStreams    bool
	maxStreamLines int
	maxLineLength  int
}

func keepFailed(testResults []*eval.TestResult) []*eval.TestResult {
	kept := make([]*eval.TestResult, 0, len(testResults))
	for _, r := range testResults {
		if r.Error != "" || !r.Passed {
			kept = append(kept, r)
		}
	}
	return kept
}

func printTestResult(result *eval.TestResult, opts viewOptions) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Printf("Test: %s\n", result.TestName)
	fmt.Printf("  Metric: %s\n", result.Metric)
	if len(result.Labels) > 0 {
		fmt.Printf("  Labels: %s\n", formatLabels(result.Labels))
	}

	status := "PASSED"
	statusColor := green

	switch {
	case result.Error != "":
		status = "ERROR"
		statusColor = yellow
	case !result.Passed:
		status = "FAILED"
		statusColor = red
	}

	statusColor.Printf("  Status: %s\n", status)
	if result.Error == "" {
		fmt.Printf("  Score: %.4f (threshold %.2f)\n", result.Score, result.Threshold)
	}
	if result.Duration > 0 {
		fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	}

	if reason := results.FailureReason(result); reason != "" {
		printMultilineField("Reason", reason)
	}

	if opts.showStreams {
		printStream("Engine stdout", result.Stdout, opts)
		printStream("Engine stderr", result.Stderr, opts)
	}
}

func printStream(label, raw string, opts viewOptions) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}

	fmt.Printf("  %s:\n", label)
	fmt.Println(indentBlock(limitMultiline(trimmed, opts.maxStreamLines, opts.maxLineLength), "    "))
}

func printMultilineField(label, value string) {
	value = strings.TrimRight(value, "\n")
	if !strings.Contains(value, "\n") {
		fmt.Printf("  %s: %s\n", label, value)
		return
	}

	fmt.Printf("  %s:\n", label)
	for _, line := range strings.Split(value, "\n") {
		fmt.Printf("    %s\n", line)
	}
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, labels[k]))
	}
	return strings.Join(pairs, ", ")
}

func limitMultiline(raw string, maxLines, maxLineLength int) string {
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	limited := make([]string, 0, len(lines))
	for idx, line := range lines {
		if maxLines > 0 && idx >= maxLines {
			limited = append(limited, fmt.Sprintf("… (+%d lines)", len(lines)-idx))
			break
		}
		if maxLineLength > 0 {
			line = util.Truncate(line, maxLineLength)
		}
		limited = append(limited, line)
	}
	return strings.Join(limited, "\n")
}

func indentBlock(block, indent string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
