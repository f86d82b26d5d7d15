package cli

import (
	"bytes"
	"testing"
)

func TestValidateCommand(t *testing.T) {
	cmd := NewValidateCmd()
	cmd.SetArgs([]string{"testdata/support-suite.yaml"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Errorf("validate command should accept a valid suite, got error: %v", err)
	}
}

func TestValidateCommandUnknownMetric(t *testing.T) {
	cmd := NewValidateCmd()
	cmd.SetArgs([]string{"testdata/unknown-metric.yaml"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("validate command should reject a suite with an unknown metric")
	}
}

func TestValidateCommandFileNotFound(t *testing.T) {
	cmd := NewValidateCmd()
	cmd.SetArgs([]string{"testdata/no-such-suite.yaml"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("validate command should fail for a missing file")
	}
}
