//go:build functional

package tests

import (
	"fmt"
	"testing"

	"github.com/deepbridge/deepbridge/functional/engine"
	"github.com/deepbridge/deepbridge/functional/testcase"
	"github.com/deepbridge/deepbridge/pkg/metric"
)

// TestMultipleTestsAllPass verifies that multiple tests can be run
// and all pass correctly. This is the baseline for multi-test execution.
func TestMultipleTestsAllPass(t *testing.T) {
	testcase.New(t, "multi-test-all-pass").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.9)
		}).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("test-1").Relevancy().Prompt("Run check one").Actual("Check one ran")
			},
			func(test *testcase.TestConfig) {
				test.Name("test-2").Relevancy().Prompt("Run check two").Actual("Check two ran")
			},
			func(test *testcase.TestConfig) {
				test.Name("test-3").Relevancy().Prompt("Run check three").Actual("Check three ran")
			},
		).
		ExpectResultCount(3).
		ExpectResultsInOrder("test-1", "test-2", "test-3").
		ExpectPassedCount(3).
		ExpectFailedCount(0).
		ExpectTestPassed("test-1").
		ExpectTestPassed("test-2").
		ExpectTestPassed("test-3").
		Run()
}

// TestMultipleTestsMixedResults verifies that when some tests pass and some
// score below their threshold, all results are correctly captured and the
// run continues after failures.
func TestMultipleTestsMixedResults(t *testing.T) {
	testcase.New(t, "multi-test-mixed-results").
		WithEngine(func(e *engine.MockEngine) {
			e.OnProgramContaining("check one").Score(0.9)
			e.OnProgramContaining("check two").Score(0.2)
			e.OnProgramContaining("check three").Score(0.8)
		}).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("passing-test").Relevancy().Prompt("Run check one").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("failing-test").Relevancy().Prompt("Run check two").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("another-passing-test").Relevancy().Prompt("Run check three").Actual("Done")
			},
		).
		ExpectResultCount(3).
		ExpectResultsInOrder("passing-test", "failing-test", "another-passing-test").
		ExpectPassedCount(2).
		ExpectFailedCount(1).
		ExpectTestPassed("passing-test").
		ExpectTestFailed("failing-test").
		ExpectTestPassed("another-passing-test").
		Run()
}

// TestEngineErrorSurfaces verifies that an engine failure on one test is
// recorded as an error with the engine's stderr, without stopping the
// remaining tests.
func TestEngineErrorSurfaces(t *testing.T) {
	testcase.New(t, "engine-error-surfaces").
		WithEngine(func(e *engine.MockEngine) {
			e.OnProgramContaining("broken judge").Fail("RuntimeError: judge unavailable")
			e.DefaultScore(0.9)
		}).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("healthy-test").Relevancy().Prompt("Run the healthy check").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("errored-test").Relevancy().Prompt("Ask the broken judge").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("trailing-test").Relevancy().Prompt("Run the trailing check").Actual("Done")
			},
		).
		ExpectResultCount(3).
		ExpectPassedCount(2).
		ExpectErroredCount(1).
		ExpectTestErrored("errored-test", "RuntimeError: judge unavailable").
		ExpectTestPassed("trailing-test").
		ExpectEngineCalls(3).
		Run()
}

// TestResultOrderPreservedWithParallelism verifies that results are returned
// in suite order regardless of execution order.
func TestResultOrderPreservedWithParallelism(t *testing.T) {
	testcase.New(t, "result-order-preserved").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.9)
		}).
		WithParallelism(4).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("alpha").Relevancy().Prompt("Run alpha check").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("beta").Relevancy().Prompt("Run beta check").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("gamma").Relevancy().Prompt("Run gamma check").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("delta").Relevancy().Prompt("Run delta check").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("epsilon").Relevancy().Prompt("Run epsilon check").Actual("Done")
			},
		).
		ExpectResultCount(5).
		ExpectResultsInOrder("alpha", "beta", "gamma", "delta", "epsilon").
		ExpectPassedCount(5).
		Run()
}

// TestMetricCategories verifies that metric kinds are correctly preserved
// across multiple tests.
func TestMetricCategories(t *testing.T) {
	testcase.New(t, "metric-categories").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.9)
		}).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("relevancy-1").Relevancy().Prompt("Check one").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("relevancy-2").Relevancy().Prompt("Check two").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("correctness-1").Correctness().Actual("Done").Expected("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("faithfulness-1").Faithfulness().Prompt("Check").Context("Facts").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("faithfulness-2").Faithfulness().Prompt("Check").Context("Facts").Actual("Done")
			},
		).
		ExpectResultCount(5).
		ExpectMetricCount(metric.KindRelevancy, 2).
		ExpectMetricCount(metric.KindCorrectness, 1).
		ExpectMetricCount(metric.KindFaithfulness, 2).
		ExpectMetricCount(metric.KindSimilarity, 0).
		Run()
}

// TestAllTestsBelowThreshold verifies behavior when every test scores below
// its threshold.
func TestAllTestsBelowThreshold(t *testing.T) {
	testcase.New(t, "all-tests-fail").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.2)
		}).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("fail-1").Relevancy().Prompt("Run check one").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("fail-2").Relevancy().Prompt("Run check two").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("fail-3").Relevancy().Prompt("Run check three").Actual("Done")
			},
		).
		ExpectResultCount(3).
		ExpectPassedCount(0).
		ExpectFailedCount(3).
		ExpectTestFailed("fail-1").
		ExpectTestFailed("fail-2").
		ExpectTestFailed("fail-3").
		Run()
}

// TestSingleTestStillWorks verifies that the harness works correctly with a
// single test.
func TestSingleTestStillWorks(t *testing.T) {
	testcase.New(t, "single-test").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.9)
		}).
		AddTest(func(test *testcase.TestConfig) {
			test.Name("only-test").Relevancy().Prompt("Run the single check").Actual("Done")
		}).
		ExpectResultCount(1).
		ExpectTestPassed("only-test").
		ExpectEngineCalls(1).
		Run()
}

// TestLargeNumberOfTests verifies the runner handles many tests correctly.
func TestLargeNumberOfTests(t *testing.T) {
	tc := testcase.New(t, "many-tests").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.9)
		})

	expectedNames := []string{
		"test-00", "test-01", "test-02", "test-03", "test-04",
		"test-05", "test-06", "test-07", "test-08", "test-09",
	}

	for _, name := range expectedNames {
		tc.AddTest(func(test *testcase.TestConfig) {
			test.Name(name).
				Relevancy().
				Prompt(fmt.Sprintf("Run %s", name)).
				Actual("Done")
		})
	}

	tc.ExpectResultCount(10).
		ExpectPassedCount(10).
		ExpectResultsInOrder(expectedNames...).
		ExpectEngineCalls(10).
		Run()
}

// TestThresholdPrecedence verifies that a per-test threshold overrides the
// suite default, and the suite default overrides the built-in one.
func TestThresholdPrecedence(t *testing.T) {
	testcase.New(t, "threshold-precedence").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.7)
		}).
		WithDefaultThreshold(0.8).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("uses-suite-default").Relevancy().Prompt("Check one").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("uses-own-threshold").Relevancy().Prompt("Check two").Actual("Done").Threshold(0.6)
			},
		).
		ExpectResultCount(2).
		ExpectTestFailed("uses-suite-default").
		ExpectTestPassed("uses-own-threshold").
		Run()
}

// TestMixedMetricsAndOutcomes verifies correct handling of combinations of
// metric kinds and pass/fail outcomes.
func TestMixedMetricsAndOutcomes(t *testing.T) {
	testcase.New(t, "mixed-metrics-outcomes").
		WithEngine(func(e *engine.MockEngine) {
			e.OnProgramContaining("passes").Score(0.9)
			e.OnProgramContaining("fails").Score(0.2)
		}).
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("relevancy-pass").Relevancy().Prompt("This one passes").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("relevancy-fail").Relevancy().Prompt("This one fails").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("correctness-pass").Correctness().Actual("This one passes").Expected("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("faithfulness-fail").Faithfulness().Prompt("This one fails").Context("Facts").Actual("Done")
			},
		).
		ExpectResultCount(4).
		ExpectPassedCount(2).
		ExpectFailedCount(2).
		ExpectTestPassed("relevancy-pass").
		ExpectTestFailed("relevancy-fail").
		ExpectTestPassed("correctness-pass").
		ExpectTestFailed("faithfulness-fail").
		Expect(testcase.AssertFunc("verify-pass-rates-by-metric", func(t *testing.T, ctx *testcase.RunContext) {
			// Count passing tests by metric
			passed := make(map[metric.Kind]int)
			for _, r := range ctx.Results {
				if r.Passed {
					passed[r.Metric]++
				}
			}
			if passed[metric.KindRelevancy] != 1 {
				t.Errorf("expected 1 relevancy test to pass, got %d", passed[metric.KindRelevancy])
			}
			if passed[metric.KindCorrectness] != 1 {
				t.Errorf("expected 1 correctness test to pass, got %d", passed[metric.KindCorrectness])
			}
			if passed[metric.KindFaithfulness] != 0 {
				t.Errorf("expected 0 faithfulness tests to pass, got %d", passed[metric.KindFaithfulness])
			}
		})).
		Run()
}

// TestNameFilterSelectsSubset verifies that the --filter pattern limits
// which tests run while the rest of the suite is skipped entirely.
func TestNameFilterSelectsSubset(t *testing.T) {
	testcase.New(t, "name-filter-subset").
		WithEngine(func(e *engine.MockEngine) {
			e.DefaultScore(0.9)
		}).
		WithNameFilter("^smoke-").
		WithTests(
			func(test *testcase.TestConfig) {
				test.Name("smoke-login").Relevancy().Prompt("Check login").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("smoke-search").Relevancy().Prompt("Check search").Actual("Done")
			},
			func(test *testcase.TestConfig) {
				test.Name("full-regression").Relevancy().Prompt("Check everything").Actual("Done")
			},
		).
		ExpectResultCount(2).
		ExpectResultsInOrder("smoke-login", "smoke-search").
		ExpectEngineCalls(2).
		Run()
}
