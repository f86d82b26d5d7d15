//go:build functional

package tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/deepbridge/deepbridge/functional/engine"
	"github.com/deepbridge/deepbridge/functional/testcase"
	"github.com/deepbridge/deepbridge/pkg/results"
)

// TestLabelFiltering creates a suite with labeled tests and verifies
// label-based filtering works end-to-end through the CLI.
func TestLabelFiltering(t *testing.T) {
	tmpDir := t.TempDir()

	installed, err := engine.NewMock().DefaultScore(0.9).Install(tmpDir)
	require.NoError(t, err)

	tests := []map[string]any{
		// Test 1: support + basic (SHOULD MATCH)
		{
			"name": "support-basic-check",
			"labels": map[string]string{
				"team":     "support",
				"category": "basic",
			},
			"metric":       "relevancy",
			"prompt":       "Run the basic support check",
			"actualOutput": "Basic support check ran",
		},
		// Test 2: support + advanced (should NOT match)
		{
			"name": "support-advanced-check",
			"labels": map[string]string{
				"team":     "support",
				"category": "advanced",
			},
			"metric":       "relevancy",
			"prompt":       "Run the advanced support check",
			"actualOutput": "Advanced support check ran",
		},
		// Test 3: billing (should NOT match)
		{
			"name": "billing-check",
			"labels": map[string]string{
				"team": "billing",
			},
			"metric":       "relevancy",
			"prompt":       "Run the billing check",
			"actualOutput": "Billing check ran",
		},
	}

	// STEP 1: Run WITHOUT label selector - should execute ALL 3 tests
	t.Log("=== Running WITHOUT label selector (should execute 3 tests) ===")

	suiteNoFilter := writeSuiteFile(t, tmpDir, "no-filter-suite", tests)

	t.Chdir(tmpDir)
	outputNoFilter, err := testcase.RunCLI(t, "run", suiteNoFilter,
		"--env-path", installed.Dir(), "--auto-provision=false")
	require.NoError(t, err, "run without filter failed, output:\n%s", outputNoFilter)

	t.Logf("deepbridge output (no filter):\n%s", outputNoFilter)

	assert.Contains(t, outputNoFilter, "Total Tests: 3", "should score all 3 tests without a selector")
	assert.Contains(t, outputNoFilter, "support-basic-check")
	assert.Contains(t, outputNoFilter, "support-advanced-check")
	assert.Contains(t, outputNoFilter, "billing-check")

	resultsNoFilter, err := results.Load(filepath.Join(tmpDir, "deepbridge-no-filter-suite-out.json"))
	require.NoError(t, err)
	assert.Len(t, resultsNoFilter, 3, "results should contain all 3 tests without a selector")

	// STEP 2: Run WITH label selector - should execute ONLY 1 test
	t.Log("=== Running WITH label selector (should execute 1 test) ===")

	suiteWithFilter := writeSuiteFile(t, tmpDir, "label-filter-suite", tests)

	outputWithFilter, err := testcase.RunCLI(t, "run", suiteWithFilter,
		"--env-path", installed.Dir(), "--auto-provision=false",
		"--selector", "team=support,category=basic")
	require.NoError(t, err, "run with filter failed, output:\n%s", outputWithFilter)

	t.Logf("deepbridge output (with filter):\n%s", outputWithFilter)

	assert.Contains(t, outputWithFilter, "support-basic-check", "should score support-basic-check")
	assert.Contains(t, outputWithFilter, "Total Tests: 1", "should only score 1 test with the selector")

	assert.NotContains(t, outputWithFilter, "support-advanced-check", "should NOT score support-advanced-check")
	assert.NotContains(t, outputWithFilter, "billing-check", "should NOT score billing-check")

	resultsWithFilter, err := results.Load(filepath.Join(tmpDir, "deepbridge-label-filter-suite-out.json"))
	require.NoError(t, err)
	require.Len(t, resultsWithFilter, 1, "results should contain exactly 1 test with the selector")
	assert.Equal(t, "support-basic-check", resultsWithFilter[0].TestName)
}

// TestLabelFilteringNoMatch verifies that a selector matching nothing fails
// the run before any engine call.
func TestLabelFilteringNoMatch(t *testing.T) {
	tmpDir := t.TempDir()

	installed, err := engine.NewMock().DefaultScore(0.9).Install(tmpDir)
	require.NoError(t, err)

	suiteFile := writeSuiteFile(t, tmpDir, "no-match-suite", []map[string]any{
		{
			"name":         "lonely-check",
			"labels":       map[string]string{"team": "support"},
			"metric":       "relevancy",
			"prompt":       "Run the lonely check",
			"actualOutput": "Lonely check ran",
		},
	})

	t.Chdir(tmpDir)
	output, err := testcase.RunCLI(t, "run", suiteFile,
		"--env-path", installed.Dir(), "--auto-provision=false",
		"--selector", "team=research")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tests match label selector")
	t.Logf("deepbridge output:\n%s", output)

	calls, err := installed.Calls()
	require.NoError(t, err)
	assert.Zero(t, calls, "no engine call should happen when nothing matches")
}

// writeSuiteFile writes a suite with the given name and tests to a YAML
// file in dir and returns its path
func writeSuiteFile(t *testing.T, dir, name string, tests []map[string]any) string {
	t.Helper()

	suite := map[string]any{
		"apiVersion": "deepbridge/v1alpha1",
		"kind":       "EvalSuite",
		"metadata": map[string]any{
			"name": name,
		},
		"tests": tests,
	}

	suiteBytes, err := yaml.Marshal(suite)
	require.NoError(t, err)

	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, suiteBytes, 0o644))

	return path
}
