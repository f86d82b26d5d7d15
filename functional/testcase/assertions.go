package testcase

import (
	"strings"
	"testing"

	"github.com/deepbridge/deepbridge/pkg/eval"
	"github.com/deepbridge/deepbridge/pkg/metric"
)

// RunContext carries everything a finished run produced, for assertions to
// inspect.
type RunContext struct {
	// Results parsed from the saved results file; nil when no file was
	// written.
	Results []*eval.TestResult

	// Output is everything the CLI printed.
	Output string

	// Err is the error the run command returned, nil on success.
	Err error

	// EngineCalls counts the metric programs the fake engine ran.
	EngineCalls int

	// ResultsFile is where the run saved its results.
	ResultsFile string
}

// Assertion checks one expectation against a finished run
type Assertion interface {
	Assert(t *testing.T, ctx *RunContext)
}

// AssertFunc wraps a function as a named assertion
func AssertFunc(name string, fn func(t *testing.T, ctx *RunContext)) Assertion {
	return &funcAssertion{name: name, fn: fn}
}

type funcAssertion struct {
	name string
	fn   func(t *testing.T, ctx *RunContext)
}

func (a *funcAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	a.fn(t, ctx)
}

func findResult(ctx *RunContext, name string) *eval.TestResult {
	for _, result := range ctx.Results {
		if result.TestName == name {
			return result
		}
	}
	return nil
}

// ResultCountAssertion checks the number of results
type ResultCountAssertion struct {
	Expected int
}

func (a *ResultCountAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	if len(ctx.Results) != a.Expected {
		t.Errorf("expected %d results, got %d", a.Expected, len(ctx.Results))
	}
}

// ResultsInOrderAssertion checks that results keep suite order
type ResultsInOrderAssertion struct {
	Names []string
}

func (a *ResultsInOrderAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	if len(ctx.Results) != len(a.Names) {
		t.Errorf("expected %d results, got %d", len(a.Names), len(ctx.Results))
		return
	}

	for i, name := range a.Names {
		if ctx.Results[i].TestName != name {
			t.Errorf("result %d: expected test '%s', got '%s'", i, name, ctx.Results[i].TestName)
		}
	}
}

// PassedCountAssertion checks how many tests passed
type PassedCountAssertion struct {
	Expected int
}

func (a *PassedCountAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	passed := 0
	for _, result := range ctx.Results {
		if result.Error == "" && result.Passed {
			passed++
		}
	}
	if passed != a.Expected {
		t.Errorf("expected %d passed tests, got %d", a.Expected, passed)
	}
}

// FailedCountAssertion checks how many tests scored below their threshold
type FailedCountAssertion struct {
	Expected int
}

func (a *FailedCountAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	failed := 0
	for _, result := range ctx.Results {
		if result.Error == "" && !result.Passed {
			failed++
		}
	}
	if failed != a.Expected {
		t.Errorf("expected %d failed tests, got %d", a.Expected, failed)
	}
}

// ErroredCountAssertion checks how many tests errored
type ErroredCountAssertion struct {
	Expected int
}

func (a *ErroredCountAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	errored := 0
	for _, result := range ctx.Results {
		if result.Error != "" {
			errored++
		}
	}
	if errored != a.Expected {
		t.Errorf("expected %d errored tests, got %d", a.Expected, errored)
	}
}

// TestPassedAssertion checks that a named test passed
type TestPassedAssertion struct {
	Name string
}

func (a *TestPassedAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	result := findResult(ctx, a.Name)
	if result == nil {
		t.Errorf("no result for test '%s'", a.Name)
		return
	}
	if result.Error != "" {
		t.Errorf("test '%s' errored: %s", a.Name, result.Error)
		return
	}
	if !result.Passed {
		t.Errorf("test '%s' failed with score %v (threshold %v)", a.Name, result.Score, result.Threshold)
	}
}

// TestFailedAssertion checks that a named test scored below its threshold
type TestFailedAssertion struct {
	Name string
}

func (a *TestFailedAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	result := findResult(ctx, a.Name)
	if result == nil {
		t.Errorf("no result for test '%s'", a.Name)
		return
	}
	if result.Error != "" {
		t.Errorf("test '%s' errored instead of failing: %s", a.Name, result.Error)
		return
	}
	if result.Passed {
		t.Errorf("test '%s' passed with score %v, expected it to fail", a.Name, result.Score)
	}
}

// TestErroredAssertion checks that a named test errored
type TestErroredAssertion struct {
	Name     string
	Contains string
}

func (a *TestErroredAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	result := findResult(ctx, a.Name)
	if result == nil {
		t.Errorf("no result for test '%s'", a.Name)
		return
	}
	if result.Error == "" {
		t.Errorf("test '%s' did not error (score %v)", a.Name, result.Score)
		return
	}
	if a.Contains != "" && !strings.Contains(result.Error, a.Contains) {
		t.Errorf("test '%s' error %q does not contain %q", a.Name, result.Error, a.Contains)
	}
}

// TestScoreAssertion checks the exact score recorded for a named test. The
// fake engine prints scores as shortest round-trip decimals, so equality is
// exact.
type TestScoreAssertion struct {
	Name  string
	Score float64
}

func (a *TestScoreAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	result := findResult(ctx, a.Name)
	if result == nil {
		t.Errorf("no result for test '%s'", a.Name)
		return
	}
	if result.Score != a.Score {
		t.Errorf("test '%s': expected score %v, got %v", a.Name, a.Score, result.Score)
	}
}

// MetricCountAssertion checks how many results a metric produced
type MetricCountAssertion struct {
	Metric   metric.Kind
	Expected int
}

func (a *MetricCountAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	count := 0
	for _, result := range ctx.Results {
		if result.Metric == a.Metric {
			count++
		}
	}
	if count != a.Expected {
		t.Errorf("expected %d %s results, got %d", a.Expected, a.Metric, count)
	}
}

// EngineCallsAssertion checks how many metric programs the engine ran
type EngineCallsAssertion struct {
	Expected int
}

func (a *EngineCallsAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	if ctx.EngineCalls != a.Expected {
		t.Errorf("expected %d engine calls, got %d", a.Expected, ctx.EngineCalls)
	}
}

// OutputContainsAssertion checks that the command output contains a substring
type OutputContainsAssertion struct {
	Substring string
}

func (a *OutputContainsAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	if !strings.Contains(ctx.Output, a.Substring) {
		t.Errorf("command output does not contain %q\noutput:\n%s", a.Substring, ctx.Output)
	}
}

// RunErrorAssertion checks that the run command failed
type RunErrorAssertion struct {
	Contains string
}

func (a *RunErrorAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	if ctx.Err == nil {
		t.Error("expected the run command to fail, but it succeeded")
		return
	}
	if a.Contains != "" && !strings.Contains(ctx.Err.Error(), a.Contains) {
		t.Errorf("run error %q does not contain %q", ctx.Err, a.Contains)
	}
}
