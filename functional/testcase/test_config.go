package testcase

import (
	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/task"
)

// TestConfig provides a fluent API for building a single suite test
type TestConfig struct {
	test task.Test
}

// NewTestConfig creates an empty test config
func NewTestConfig() *TestConfig {
	return &TestConfig{}
}

// Name sets the test name
func (tc *TestConfig) Name(name string) *TestConfig {
	tc.test.Name = name
	return tc
}

// Label adds a label to the test
func (tc *TestConfig) Label(key, value string) *TestConfig {
	if tc.test.Labels == nil {
		tc.test.Labels = make(map[string]string)
	}
	tc.test.Labels[key] = value
	return tc
}

// Metric sets the metric kind directly
func (tc *TestConfig) Metric(kind metric.Kind) *TestConfig {
	tc.test.Kind = kind
	return tc
}

// Relevancy scores the test with the relevancy metric
func (tc *TestConfig) Relevancy() *TestConfig {
	return tc.Metric(metric.KindRelevancy)
}

// Correctness scores the test with the correctness metric
func (tc *TestConfig) Correctness() *TestConfig {
	return tc.Metric(metric.KindCorrectness)
}

// Faithfulness scores the test with the faithfulness metric
func (tc *TestConfig) Faithfulness() *TestConfig {
	return tc.Metric(metric.KindFaithfulness)
}

// Similarity scores the test with the similarity metric
func (tc *TestConfig) Similarity() *TestConfig {
	return tc.Metric(metric.KindSimilarity)
}

// Prompt sets the input question, or the reference text for similarity
func (tc *TestConfig) Prompt(text string) *TestConfig {
	tc.test.Prompt = text
	return tc
}

// Context sets the retrieval context for faithfulness
func (tc *TestConfig) Context(text string) *TestConfig {
	tc.test.Context = text
	return tc
}

// Actual sets the text under evaluation
func (tc *TestConfig) Actual(text string) *TestConfig {
	tc.test.ActualOutput = text
	return tc
}

// Expected sets the reference answer for correctness
func (tc *TestConfig) Expected(text string) *TestConfig {
	tc.test.ExpectedOutput = text
	return tc
}

// Threshold overrides the suite threshold for this test
func (tc *TestConfig) Threshold(threshold float64) *TestConfig {
	tc.test.Threshold = &threshold
	return tc
}

func (tc *TestConfig) build() task.Test {
	return tc.test
}
