// Package results provides utilities for loading, filtering, and analyzing
// suite results.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/metric"
)

// Stats holds computed statistics from suite results. AverageScore only
// covers tests that produced a score, so errored tests do not drag it down.
type Stats struct {
	ResultsFile  string  `json:"resultsFile"`
	TestsTotal   int     `json:"testsTotal"`
	TestsPassed  int     `json:"testsPassed"`
	TestsErrored int     `json:"testsErrored"`
	PassRate     float64 `json:"passRate"`
	AverageScore float64 `json:"averageScore"`
}

// Load reads a JSON results file and returns the parsed test results.
func Load(path string) ([]*eval.TestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var results []*eval.TestResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results JSON: %w", err)
	}

	return results, nil
}

// Filter returns the subset of results whose test names contain the filter substring.
func Filter(results []*eval.TestResult, filter string) []*eval.TestResult {
	if filter == "" {
		return results
	}

	filter = strings.ToLower(filter)
	filtered := make([]*eval.TestResult, 0, len(results))
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.TestName), filter) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FilterByMetric returns the subset of results produced by a single metric.
func FilterByMetric(results []*eval.TestResult, kind metric.Kind) []*eval.TestResult {
	filtered := make([]*eval.TestResult, 0, len(results))
	for _, r := range results {
		if r.Metric == kind {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// GroupByMetric buckets results by the metric that produced them.
func GroupByMetric(results []*eval.TestResult) map[metric.Kind][]*eval.TestResult {
	grouped := make(map[metric.Kind][]*eval.TestResult)
	for _, r := range results {
		grouped[r.Metric] = append(grouped[r.Metric], r)
	}
	return grouped
}

// CalculateStats computes statistics from suite results.
func CalculateStats(resultsFile string, results []*eval.TestResult) Stats {
	stats := Stats{
		ResultsFile: resultsFile,
		TestsTotal:  len(results),
	}

	var scored int
	var sum float64
	for _, result := range results {
		if result.Passed {
			stats.TestsPassed++
		}

		if result.Error != "" {
			stats.TestsErrored++
			continue
		}

		scored++
		sum += result.Score
	}

	// Calculate rates
	if stats.TestsTotal > 0 {
		stats.PassRate = float64(stats.TestsPassed) / float64(stats.TestsTotal)
	}
	if scored > 0 {
		stats.AverageScore = sum / float64(scored)
	}

	return stats
}

// FailureReason returns a short reason for a test that did not pass.
func FailureReason(r *eval.TestResult) string {
	if r.Error != "" {
		return r.Error
	}
	if !r.Passed {
		return fmt.Sprintf("score %v is below threshold %v", r.Score, r.Threshold)
	}
	return ""
}
