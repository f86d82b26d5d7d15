package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/util"
)

const KindEvalSuite = "EvalSuite"

// Suite is a declarative set of metric evaluations, usually loaded from a
// YAML file. Suite-level defaults apply to every test that does not set its
// own value.
type Suite struct {
	util.TypeMeta `json:",inline"`

	Metadata SuiteMetadata `json:"metadata"`
	Defaults SuiteDefaults `json:"defaults,omitempty"`
	Hooks    SuiteHooks    `json:"hooks,omitempty"`
	Tests    []Test        `json:"tests"`
}

type SuiteMetadata struct {
	Name string `json:"name"`
}

type SuiteDefaults struct {
	Threshold *float64 `json:"threshold,omitempty"`
}

// SuiteHooks are optional shell steps that run before the first test and
// after the last one.
type SuiteHooks struct {
	Setup    *util.Step `json:"setup,omitempty"`
	Teardown *util.Step `json:"teardown,omitempty"`
}

// Test is a single named evaluation within a suite. Labels are free-form
// key/value pairs used for selector filtering.
type Test struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`

	metric.Request `json:",inline"`
}

func (s *Suite) UnmarshalJSON(data []byte) error {
	type Doppleganger Suite

	tmp := (*Doppleganger)(s)

	return util.UnmarshalWithKind(data, tmp, KindEvalSuite)
}

var suiteSchema = jsonschema.Schema{
	Type:        "object",
	Description: "Declarative set of deepeval metric evaluations",
	Properties: map[string]*jsonschema.Schema{
		"apiVersion": {
			Type: "string",
		},
		"kind": {
			Type: "string",
		},
		"metadata": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {Type: "string"},
			},
			Required: []string{"name"},
		},
		"defaults": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"threshold": {
					Type:    "number",
					Minimum: ptr.To(0.0),
					Maximum: ptr.To(1.0),
				},
			},
		},
		"hooks": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"setup": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"inline": {Type: "string"},
						"file":   {Type: "string"},
					},
				},
				"teardown": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"inline": {Type: "string"},
						"file":   {Type: "string"},
					},
				},
			},
		},
		"tests": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name":           {Type: "string"},
					"labels":         {Type: "object"},
					"metric":         {Type: "string"},
					"prompt":         {Type: "string"},
					"context":        {Type: "string"},
					"actualOutput":   {Type: "string"},
					"expectedOutput": {Type: "string"},
					"threshold": {
						Type:    "number",
						Minimum: ptr.To(0.0),
						Maximum: ptr.To(1.0),
					},
				},
				Required: []string{"name", "metric"},
			},
		},
	},
	Required: []string{"kind", "metadata", "tests"},
}

var resolvedSuiteSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return suiteSchema.Resolve(nil)
})

func Read(data []byte, basePath string) (*Suite, error) {
	suite := &Suite{}

	err := yaml.Unmarshal(data, suite)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal eval suite: %w", err)
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	// Convert all relative file paths to absolute paths
	if err := resolveStepPath(suite.Hooks.Setup, basePath); err != nil {
		return nil, fmt.Errorf("failed to resolve setup hook path: %w", err)
	}
	if err := resolveStepPath(suite.Hooks.Teardown, basePath); err != nil {
		return nil, fmt.Errorf("failed to resolve teardown hook path: %w", err)
	}

	suite.applyDefaults()

	return suite, nil
}

// validateSchema checks the raw document against the suite schema, catching
// missing or mistyped keys that unmarshalling would silently zero out.
func validateSchema(data []byte) error {
	resolved, err := resolvedSuiteSchema()
	if err != nil {
		return fmt.Errorf("failed to resolve suite schema: %w", err)
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to convert suite to json: %w", err)
	}

	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to decode suite document: %w", err)
	}

	if err := resolved.Validate(doc); err != nil {
		return fmt.Errorf("suite does not match the expected schema: %w", err)
	}

	return nil
}

func resolveStepPath(step *util.Step, basePath string) error {
	if step == nil || step.File == "" {
		return nil
	}

	// If the path is already absolute, leave it as-is
	if filepath.IsAbs(step.File) {
		return nil
	}

	// Convert relative path to absolute path based on the YAML file's directory
	absPath := filepath.Join(basePath, step.File)
	step.File = absPath

	return nil
}

// applyDefaults copies suite-level defaults onto every test that did not set
// its own value.
func (s *Suite) applyDefaults() {
	if s.Defaults.Threshold == nil {
		return
	}

	for i := range s.Tests {
		if s.Tests[i].Threshold == nil {
			threshold := *s.Defaults.Threshold
			s.Tests[i].Threshold = &threshold
		}
	}
}

// Validate checks everything the schema cannot: unique test names, known
// metric kinds, thresholds in range, and the fields each metric reads.
func (s *Suite) Validate() error {
	var errs []error

	if err := s.TypeMeta.Validate(KindEvalSuite); err != nil {
		errs = append(errs, err)
	}

	if s.Metadata.Name == "" {
		errs = append(errs, errors.New("metadata.name must be set"))
	}

	if len(s.Tests) == 0 {
		errs = append(errs, errors.New("a suite needs at least one test"))
	}

	seen := make(map[string]bool, len(s.Tests))
	for i := range s.Tests {
		test := &s.Tests[i]

		name := test.Name
		if name == "" {
			errs = append(errs, fmt.Errorf("test %d has no name", i))
			name = fmt.Sprintf("#%d", i)
		} else if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate test name '%s'", name))
		}
		seen[name] = true

		if err := test.Request.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("test '%s': %w", name, err))
			continue
		}

		if missing := test.Request.MissingFields(); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("test '%s' is missing fields used by %s: %s",
				name, test.Kind, strings.Join(missing, ", ")))
		}
	}

	return errors.Join(errs...)
}

func FromFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s' for eval suite: %w", path, err)
	}

	// Convert to absolute path to ensure basePath is absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}

	basePath := filepath.Dir(absPath)

	return Read(data, basePath)
}
