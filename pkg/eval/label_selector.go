package eval

import (
	"fmt"
	"strings"

	"github.com/deepbridge/deepbridge/pkg/task"
)

// ApplySelector filters the tests in a suite down to those matching a
// CLI-provided label selector (format: key=value, comma separated for
// multiple requirements, AND semantics).
//
// This is intentionally kept in the eval package so filtering logic is
// consolidated outside of the CLI layer.
func ApplySelector(suite *task.Suite, selector string) error {
	if suite == nil {
		return fmt.Errorf("suite cannot be nil")
	}
	if selector == "" {
		return nil
	}

	want := make(map[string]string)
	for _, part := range strings.Split(selector, ",") {
		// Parse label selector (format: key=value)
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("invalid label selector format, expected key=value, got: %s", part)
		}

		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		if key == "" || value == "" {
			return fmt.Errorf("label selector key and value cannot be empty")
		}

		want[key] = value
	}

	var filtered []task.Test
	for _, test := range suite.Tests {
		if matchesLabelSelector(test.Labels, want) {
			filtered = append(filtered, test)
		}
	}

	if len(filtered) == 0 {
		return fmt.Errorf("no tests match label selector %s", selector)
	}

	suite.Tests = filtered

	return nil
}

// matchesLabelSelector reports whether the selector is a subset of labels.
// An empty selector matches everything.
func matchesLabelSelector(labels, selector map[string]string) bool {
	for key, value := range selector {
		if labels[key] != value {
			return false
		}
	}

	return true
}
