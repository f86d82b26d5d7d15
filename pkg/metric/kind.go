// Package metric defines the metric kinds the bridge evaluates and the
// request and outcome types shared between the bridge and the harness.
package metric

import (
	"fmt"
	"strings"
)

// Kind identifies one of the engine's supported metrics.
type Kind string

const (
	// KindRelevancy scores how well the actual output answers the prompt.
	KindRelevancy Kind = "relevancy"
	// KindCorrectness scores the actual output against an expected output.
	KindCorrectness Kind = "correctness"
	// KindFaithfulness scores whether the actual output stays grounded in
	// the retrieval context.
	KindFaithfulness Kind = "faithfulness"
	// KindSimilarity scores semantic similarity between a reference text
	// and a generated text.
	KindSimilarity Kind = "similarity"
)

// DefaultThreshold is the engine-side passing threshold used when a request
// does not set one.
const DefaultThreshold = 0.5

// AllKinds returns every supported metric kind.
func AllKinds() []Kind {
	return []Kind{KindRelevancy, KindCorrectness, KindFaithfulness, KindSimilarity}
}

// ParseKind resolves a user-facing metric name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	for _, kind := range AllKinds() {
		if strings.EqualFold(name, string(kind)) {
			return kind, nil
		}
	}

	return "", fmt.Errorf("unknown metric '%s' (expected one of: %s)", name, KindNames())
}

// KindNames returns the supported metric names as one comma-separated string.
func KindNames() string {
	names := make([]string, 0, len(AllKinds()))
	for _, kind := range AllKinds() {
		names = append(names, string(kind))
	}

	return strings.Join(names, ", ")
}
