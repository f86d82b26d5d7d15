package cli

import (
	"bytes"
	"testing"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/metric"
)

// sampleResultsImproved returns the sample results after a hypothetical fix:
// every test passes and one test is new.
func sampleResultsImproved() []*eval.TestResult {
	return []*eval.TestResult{
		{
			TestName:  "on topic",
			Metric:    metric.KindRelevancy,
			Score:     0.95,
			Threshold: 0.7,
			Passed:    true,
		},
		{
			TestName:  "grounded in context",
			Metric:    metric.KindFaithfulness,
			Score:     0.84,
			Threshold: 0.7,
			Passed:    true,
		},
		{
			TestName:  "matches reference",
			Metric:    metric.KindCorrectness,
			Score:     0.88,
			Threshold: 0.5,
			Passed:    true,
		},
		{
			TestName:  "stays polite",
			Metric:    metric.KindRelevancy,
			Score:     0.90,
			Threshold: 0.5,
			Passed:    true,
		},
	}
}

func TestDiffCommand(t *testing.T) {
	baseFile := createTestResultsFile(t, sampleResults())
	currentFile := createTestResultsFile(t, sampleResultsImproved())

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", currentFile})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("diff command failed: %v", err)
	}
}

func TestDiffCommandMarkdown(t *testing.T) {
	baseFile := createTestResultsFile(t, sampleResults())
	currentFile := createTestResultsFile(t, sampleResultsImproved())

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", currentFile, "--output", "markdown"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("diff command with --output markdown failed: %v", err)
	}
}

func TestDiffCommandBaseNotFound(t *testing.T) {
	currentFile := createTestResultsFile(t, sampleResults())

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", "/nonexistent/path/base.json", "--current", currentFile})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("diff command should fail with nonexistent base file")
	}
}

func TestDiffCommandCurrentNotFound(t *testing.T) {
	baseFile := createTestResultsFile(t, sampleResults())

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", "/nonexistent/path/current.json"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("diff command should fail with nonexistent current file")
	}
}

func TestCalculateDiff(t *testing.T) {
	baseResults := sampleResults()
	headResults := sampleResultsImproved()

	diff := calculateDiff("base.json", "head.json", baseResults, headResults)

	// Check base stats
	if diff.BaseStats.TestsTotal != 3 {
		t.Errorf("BaseStats.TestsTotal = %d, want 3", diff.BaseStats.TestsTotal)
	}

	// Check head stats (improved results have 4 tests)
	if diff.HeadStats.TestsTotal != 4 {
		t.Errorf("HeadStats.TestsTotal = %d, want 4", diff.HeadStats.TestsTotal)
	}

	// Both the failing and the errored test pass in head
	if len(diff.Improvements) != 2 {
		t.Errorf("len(Improvements) = %d, want 2", len(diff.Improvements))
	}

	// Should have 1 new test
	if len(diff.New) != 1 {
		t.Errorf("len(New) = %d, want 1", len(diff.New))
	}

	if len(diff.Regressions) != 0 {
		t.Errorf("len(Regressions) = %d, want 0", len(diff.Regressions))
	}

	if len(diff.Removed) != 0 {
		t.Errorf("len(Removed) = %d, want 0", len(diff.Removed))
	}
}

func TestCalculateDiffRegressions(t *testing.T) {
	// Swap base and head to test regressions
	baseResults := sampleResultsImproved()
	headResults := sampleResults()

	diff := calculateDiff("base.json", "head.json", baseResults, headResults)

	// The failing and the errored test both passed in base
	if len(diff.Regressions) != 2 {
		t.Errorf("len(Regressions) = %d, want 2", len(diff.Regressions))
	}

	// Should have 1 removed test
	if len(diff.Removed) != 1 {
		t.Errorf("len(Removed) = %d, want 1", len(diff.Removed))
	}

	if diff.Removed[0].TestName != "stays polite" {
		t.Errorf("Removed[0].TestName = %s, want 'stays polite'", diff.Removed[0].TestName)
	}
}

func TestCalculateDiffNoChanges(t *testing.T) {
	baseResults := sampleResults()
	headResults := sampleResults()

	diff := calculateDiff("base.json", "head.json", baseResults, headResults)

	if len(diff.Regressions) != 0 || len(diff.Improvements) != 0 || len(diff.New) != 0 || len(diff.Removed) != 0 {
		t.Errorf("diff of identical results should be empty, got %+v", diff)
	}
}
