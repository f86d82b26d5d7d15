// Package testcase provides a fluent API for defining functional test
// cases that drive the deepbridge CLI in-process against a fake
// evaluation engine.
package testcase

import (
	"testing"

	"github.com/deepbridge/deepbridge/functional/engine"
	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/task"
	"github.com/deepbridge/deepbridge/pkg/util"
)

// TestCase represents a complete functional test scenario
type TestCase struct {
	t    *testing.T
	name string

	// Fake engine behavior
	engine *engine.MockEngine

	// Suite configuration
	defaultThreshold *float64
	setup            string
	teardown         string
	tests            []*TestConfig

	// Run flags
	selector    string
	namePattern string
	parallelism int

	// Assertions to run after the test
	assertions []Assertion
}

// New creates a new test case with the given name. The name doubles as the
// suite name, so the results file is deepbridge-<name>-out.json.
func New(t *testing.T, name string) *TestCase {
	return &TestCase{
		t:      t,
		name:   name,
		engine: engine.NewMock(),
	}
}

// WithEngine configures the fake engine behavior
func (tc *TestCase) WithEngine(configure func(*engine.MockEngine)) *TestCase {
	configure(tc.engine)
	return tc
}

// WithDefaultThreshold sets the suite-level default threshold
func (tc *TestCase) WithDefaultThreshold(threshold float64) *TestCase {
	tc.defaultThreshold = &threshold
	return tc
}

// WithSetup sets an inline setup hook for the suite
func (tc *TestCase) WithSetup(inline string) *TestCase {
	tc.setup = inline
	return tc
}

// WithTeardown sets an inline teardown hook for the suite
func (tc *TestCase) WithTeardown(inline string) *TestCase {
	tc.teardown = inline
	return tc
}

// AddTest adds a single test to the suite
func (tc *TestCase) AddTest(configure func(*TestConfig)) *TestCase {
	config := NewTestConfig()
	configure(config)
	tc.tests = append(tc.tests, config)
	return tc
}

// WithTests adds multiple tests to the suite in order
func (tc *TestCase) WithTests(configs ...func(*TestConfig)) *TestCase {
	for _, configure := range configs {
		tc.AddTest(configure)
	}
	return tc
}

// WithSelector runs the suite with a label selector (key=value,key2=value2)
func (tc *TestCase) WithSelector(selector string) *TestCase {
	tc.selector = selector
	return tc
}

// WithNameFilter runs the suite with a test name pattern
func (tc *TestCase) WithNameFilter(pattern string) *TestCase {
	tc.namePattern = pattern
	return tc
}

// WithParallelism runs the suite with concurrent scoring
func (tc *TestCase) WithParallelism(n int) *TestCase {
	tc.parallelism = n
	return tc
}

// Expect adds an assertion to be checked after the run
func (tc *TestCase) Expect(a Assertion) *TestCase {
	tc.assertions = append(tc.assertions, a)
	return tc
}

// ExpectResultCount asserts the number of results in the output file
func (tc *TestCase) ExpectResultCount(count int) *TestCase {
	return tc.Expect(&ResultCountAssertion{Expected: count})
}

// ExpectResultsInOrder asserts result names appear in suite order
func (tc *TestCase) ExpectResultsInOrder(names ...string) *TestCase {
	return tc.Expect(&ResultsInOrderAssertion{Names: names})
}

// ExpectPassedCount asserts how many tests passed
func (tc *TestCase) ExpectPassedCount(count int) *TestCase {
	return tc.Expect(&PassedCountAssertion{Expected: count})
}

// ExpectFailedCount asserts how many tests scored below their threshold
func (tc *TestCase) ExpectFailedCount(count int) *TestCase {
	return tc.Expect(&FailedCountAssertion{Expected: count})
}

// ExpectErroredCount asserts how many tests errored
func (tc *TestCase) ExpectErroredCount(count int) *TestCase {
	return tc.Expect(&ErroredCountAssertion{Expected: count})
}

// ExpectTestPassed asserts that a named test passed
func (tc *TestCase) ExpectTestPassed(name string) *TestCase {
	return tc.Expect(&TestPassedAssertion{Name: name})
}

// ExpectTestFailed asserts that a named test scored below its threshold
func (tc *TestCase) ExpectTestFailed(name string) *TestCase {
	return tc.Expect(&TestFailedAssertion{Name: name})
}

// ExpectTestErrored asserts that a named test errored, optionally with an
// error containing the substring
func (tc *TestCase) ExpectTestErrored(name, contains string) *TestCase {
	return tc.Expect(&TestErroredAssertion{Name: name, Contains: contains})
}

// ExpectTestScore asserts the exact score recorded for a named test
func (tc *TestCase) ExpectTestScore(name string, score float64) *TestCase {
	return tc.Expect(&TestScoreAssertion{Name: name, Score: score})
}

// ExpectMetricCount asserts how many results a metric produced
func (tc *TestCase) ExpectMetricCount(kind metric.Kind, count int) *TestCase {
	return tc.Expect(&MetricCountAssertion{Metric: kind, Expected: count})
}

// ExpectEngineCalls asserts how many metric programs the engine ran
func (tc *TestCase) ExpectEngineCalls(times int) *TestCase {
	return tc.Expect(&EngineCallsAssertion{Expected: times})
}

// ExpectOutputContains asserts that the command output contains a substring
func (tc *TestCase) ExpectOutputContains(substring string) *TestCase {
	return tc.Expect(&OutputContainsAssertion{Substring: substring})
}

// ExpectRunError asserts the run command failed with an error containing
// the substring
func (tc *TestCase) ExpectRunError(contains string) *TestCase {
	return tc.Expect(&RunErrorAssertion{Contains: contains})
}

// Run executes the test case
func (tc *TestCase) Run() {
	tc.t.Helper()
	tc.t.Run(tc.name, func(t *testing.T) {
		runner := &Runner{tc: tc, t: t}
		runner.Run()
	})
}

// Name returns the test case name
func (tc *TestCase) Name() string {
	return tc.name
}

func (tc *TestCase) buildSuite() *task.Suite {
	suite := &task.Suite{
		TypeMeta: util.TypeMeta{
			APIVersion: util.APIVersionV1Alpha1,
			Kind:       task.KindEvalSuite,
		},
		Metadata: task.SuiteMetadata{Name: tc.name},
		Defaults: task.SuiteDefaults{Threshold: tc.defaultThreshold},
	}

	if tc.setup != "" {
		suite.Hooks.Setup = &util.Step{Inline: tc.setup}
	}
	if tc.teardown != "" {
		suite.Hooks.Teardown = &util.Step{Inline: tc.teardown}
	}

	for _, config := range tc.tests {
		suite.Tests = append(suite.Tests, config.build())
	}

	return suite
}
