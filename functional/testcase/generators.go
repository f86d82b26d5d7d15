package testcase

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"sigs.k8s.io/yaml"

	"github.com/deepbridge/deepbridge/pkg/task"
)

// Generator writes generated configuration files for a test case into a
// per-test temporary directory.
type Generator struct {
	t       *testing.T
	tempDir string
}

// NewGenerator creates a generator backed by the test's temp directory
func NewGenerator(t *testing.T) *Generator {
	return &Generator{
		t:       t,
		tempDir: t.TempDir(),
	}
}

// TempDir returns the temporary directory path
func (g *Generator) TempDir() string {
	return g.tempDir
}

// GenerateSuiteYAML writes a suite to <suite-name>.yaml in the temp directory
func (g *Generator) GenerateSuiteYAML(suite *task.Suite) (string, error) {
	return g.WriteYAML(fmt.Sprintf("%s.yaml", suite.Metadata.Name), suite)
}

// WriteYAML writes data as YAML to a file in the temp directory
func (g *Generator) WriteYAML(filename string, data any) (string, error) {
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}

	return g.WriteFile(filename, string(yamlBytes))
}

// WriteFile writes content to a file in the temp directory
func (g *Generator) WriteFile(filename, content string) (string, error) {
	path := filepath.Join(g.tempDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
