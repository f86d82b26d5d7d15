// Package script synthesizes the Python programs and argument vectors handed
// to the evaluation engine.
package script

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/deepbridge/deepbridge/pkg/metric"
)

var (
	relevancyTemplate = template.Must(template.New("relevancy").Parse(
		`from deepeval.metrics import AnswerRelevancyMetric
from deepeval.test_case import LLMTestCase

metric = AnswerRelevancyMetric(threshold={{.Threshold}})
test_case = LLMTestCase(input="{{.Prompt}}", actual_output="{{.ActualOutput}}")
metric.measure(test_case)
print(metric.score)
`))

	correctnessTemplate = template.Must(template.New("correctness").Parse(
		`from deepeval.metrics import GEval
from deepeval.test_case import LLMTestCase, LLMTestCaseParams

metric = GEval(
    name="Correctness",
    criteria="Determine whether the actual output is factually correct based on the expected output.",
    evaluation_params=[LLMTestCaseParams.ACTUAL_OUTPUT, LLMTestCaseParams.EXPECTED_OUTPUT],
    threshold={{.Threshold}},
)
test_case = LLMTestCase(input="{{.Prompt}}", actual_output="{{.ActualOutput}}", expected_output="{{.ExpectedOutput}}")
metric.measure(test_case)
print(metric.score)
`))

	faithfulnessTemplate = template.Must(template.New("faithfulness").Parse(
		`from deepeval.metrics import FaithfulnessMetric
from deepeval.test_case import LLMTestCase

metric = FaithfulnessMetric(threshold={{.Threshold}})
test_case = LLMTestCase(input="{{.Prompt}}", actual_output="{{.ActualOutput}}", retrieval_context=["{{.Context}}"])
metric.measure(test_case)
print(metric.score)
`))

	similarityTemplate = template.Must(template.New("similarity").Parse(
		`from deepeval.metrics import GEval
from deepeval.test_case import LLMTestCase, LLMTestCaseParams

metric = GEval(
    name="Semantic Similarity",
    criteria="Determine whether the actual output is semantically similar to the input text.",
    evaluation_params=[LLMTestCaseParams.INPUT, LLMTestCaseParams.ACTUAL_OUTPUT],
    threshold={{.Threshold}},
)
test_case = LLMTestCase(input="{{.Prompt}}", actual_output="{{.ActualOutput}}")
metric.measure(test_case)
print(metric.score)
`))
)

// metricTemplates is the single dispatch point from a metric kind to its
// program template.
var metricTemplates = map[metric.Kind]*template.Template{
	metric.KindRelevancy:    relevancyTemplate,
	metric.KindCorrectness:  correctnessTemplate,
	metric.KindFaithfulness: faithfulnessTemplate,
	metric.KindSimilarity:   similarityTemplate,
}

type templateData struct {
	Prompt         string
	Context        string
	ActualOutput   string
	ExpectedOutput string
	Threshold      string
}

// ForMetric synthesizes the engine program for one evaluation request.
//
// Every free-text field is escaped before embedding, and the threshold is
// formatted with strconv so the rendered literal never depends on locale.
// The program prints the metric score as its only stdout content. Field
// values are embedded as-is otherwise: an empty field renders as an empty
// literal and produces whatever degenerate score the engine assigns.
func ForMetric(req metric.Request) (string, error) {
	tmpl, ok := metricTemplates[req.Kind]
	if !ok {
		return "", fmt.Errorf("no program template for metric '%s'", req.Kind)
	}

	data := templateData{
		Prompt:         Escape(req.Prompt),
		Context:        Escape(req.Context),
		ActualOutput:   Escape(req.ActualOutput),
		ExpectedOutput: Escape(req.ExpectedOutput),
		Threshold:      strconv.FormatFloat(req.EffectiveThreshold(), 'g', -1, 64),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render %s program: %w", req.Kind, err)
	}

	return out.String(), nil
}

// SuiteArgs composes the argument vector for running a native engine test
// suite. No program is synthesized and no shell is involved; the path and
// any extra arguments pass through as separate argv entries.
func SuiteArgs(path string, extra ...string) []string {
	return append([]string{"-m", "deepeval", "test", "run", path}, extra...)
}
