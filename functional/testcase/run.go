package testcase

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fatih/color"

	"github.com/deepbridge/deepbridge/functional/engine"
	"github.com/deepbridge/deepbridge/pkg/cli"
	"github.com/deepbridge/deepbridge/pkg/results"
)

// Runner orchestrates the execution of a test case
type Runner struct {
	tc *TestCase
	t  *testing.T

	// Runtime state
	generator *Generator
	installed *engine.Installed

	// Generated file paths
	suiteFile  string
	outputFile string
}

// Run executes the test case
func (r *Runner) Run() {
	r.t.Helper()

	if err := r.setup(); err != nil {
		r.t.Fatalf("test setup failed: %v", err)
	}

	runCtx := r.runDeepbridge()

	r.runAssertions(runCtx)
}

func (r *Runner) setup() error {
	r.generator = NewGenerator(r.t)

	installed, err := r.tc.engine.Install(r.generator.TempDir())
	if err != nil {
		return err
	}
	r.installed = installed

	suite := r.tc.buildSuite()
	r.suiteFile, err = r.generator.GenerateSuiteYAML(suite)
	if err != nil {
		return err
	}

	r.outputFile = filepath.Join(r.generator.TempDir(), fmt.Sprintf("deepbridge-%s-out.json", suite.Metadata.Name))

	return nil
}

func (r *Runner) runDeepbridge() *RunContext {
	args := []string{"run", r.suiteFile, "--env-path", r.installed.Dir(), "--auto-provision=false"}
	if r.tc.selector != "" {
		args = append(args, "--selector", r.tc.selector)
	}
	if r.tc.namePattern != "" {
		args = append(args, "--filter", r.tc.namePattern)
	}
	if r.tc.parallelism > 0 {
		args = append(args, "--parallelism", strconv.Itoa(r.tc.parallelism))
	}

	// The run command writes its results file to the working directory
	r.t.Chdir(r.generator.TempDir())

	output, err := RunCLI(r.t, args...)

	runCtx := &RunContext{
		Output:      output,
		Err:         err,
		ResultsFile: r.outputFile,
	}

	// Log command output for debugging
	if err != nil {
		r.t.Logf("deepbridge run failed: %v", err)
		r.t.Logf("command output:\n%s", output)
	}

	// Parse results from the output file
	if _, statErr := os.Stat(r.outputFile); statErr == nil {
		loaded, loadErr := results.Load(r.outputFile)
		if loadErr != nil {
			r.t.Logf("warning: failed to parse results: %v", loadErr)
		} else {
			runCtx.Results = loaded
		}
	} else {
		r.t.Logf("output file not found: %s", r.outputFile)
		r.t.Logf("command output:\n%s", output)
	}

	calls, callsErr := r.installed.Calls()
	if callsErr != nil {
		r.t.Logf("warning: failed to read engine call log: %v", callsErr)
	}
	runCtx.EngineCalls = calls

	return runCtx
}

func (r *Runner) runAssertions(ctx *RunContext) {
	for _, assertion := range r.tc.assertions {
		assertion.Assert(r.t, ctx)
	}
}

// RunCLI executes the deepbridge CLI in-process and returns everything it
// printed, including direct writes to os.Stdout.
func RunCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := cli.NewRootCmd()
	root.SetArgs(args)

	var cobraOut bytes.Buffer
	root.SetOut(&cobraOut)
	root.SetErr(&cobraOut)

	captured, err := captureStdout(root.Execute)

	return captured + cobraOut.String(), err
}

// captureStdout runs fn with os.Stdout redirected into a buffer. The color
// package holds its own writer, so that is swapped too.
func captureStdout(fn func() error) (string, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("failed to create capture pipe: %w", err)
	}

	origStdout := os.Stdout
	origColor := color.Output
	os.Stdout = writer
	color.Output = writer

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, reader)
		close(done)
	}()

	runErr := fn()

	os.Stdout = origStdout
	color.Output = origColor
	_ = writer.Close()
	<-done
	_ = reader.Close()

	return buf.String(), runErr
}
