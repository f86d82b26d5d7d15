// Package engine provides a fake evaluation engine for functional tests.
// Install writes an environment directory whose interpreter is a shell
// script: module invocations (pip upgrades, judge model commands) succeed
// silently, and generated metric programs are answered by matching marker
// strings against the program text.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MockEngine accumulates scoring rules and builds the fake environment.
type MockEngine struct {
	rules        []*Rule
	defaultScore string
}

// Rule maps a marker substring to a scripted response.
type Rule struct {
	engine *MockEngine
	marker string

	stdout   string
	stderr   string
	exitCode int
}

// NewMock creates an engine with no rules. A program that matches no rule
// fails loudly so a misconfigured test cannot pass by accident.
func NewMock() *MockEngine {
	return &MockEngine{}
}

// OnProgramContaining registers a rule that fires when the generated metric
// program contains marker. Rules are tried in registration order.
func (e *MockEngine) OnProgramContaining(marker string) *Rule {
	rule := &Rule{engine: e, marker: marker}
	e.rules = append(e.rules, rule)
	return rule
}

// DefaultScore sets the score printed when no rule matches.
func (e *MockEngine) DefaultScore(score float64) *MockEngine {
	e.defaultScore = formatScore(score)
	return e
}

// Score makes the rule print score on stdout and exit 0.
func (r *Rule) Score(score float64) *MockEngine {
	r.stdout = formatScore(score)
	return r.engine
}

// ScoreAndExit prints score but exits with code, the way the real engine
// reports an engine-side threshold failure after scoring.
func (r *Rule) ScoreAndExit(score float64, code int) *MockEngine {
	r.stdout = formatScore(score)
	r.exitCode = code
	return r.engine
}

// Fail makes the rule print stderr and exit 1 without producing a score.
func (r *Rule) Fail(stderr string) *MockEngine {
	r.stderr = stderr
	r.exitCode = 1
	return r.engine
}

// Installed is a fake environment written to disk.
type Installed struct {
	dir     string
	callLog string
}

// Dir returns the environment directory, suitable for --env-path.
func (i *Installed) Dir() string {
	return i.dir
}

// Calls returns how many metric programs the engine has been asked to run.
func (i *Installed) Calls() (int, error) {
	data, err := os.ReadFile(i.callLog)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	return strings.Count(string(data), "\n"), nil
}

// Install writes the environment layout under baseDir: an "engine"
// directory with bin/python pointing at the generated script, and a call
// log beside it.
func (e *MockEngine) Install(baseDir string) (*Installed, error) {
	envDir := filepath.Join(baseDir, "engine")
	binDir := filepath.Join(envDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create engine layout: %w", err)
	}

	callLog := filepath.Join(baseDir, "engine-calls.log")

	script := e.renderScript(callLog)
	interpreter := filepath.Join(binDir, "python")
	if err := os.WriteFile(interpreter, []byte(script), 0o755); err != nil {
		return nil, fmt.Errorf("failed to write engine script: %w", err)
	}

	return &Installed{dir: envDir, callLog: callLog}, nil
}

func (e *MockEngine) renderScript(callLog string) string {
	var b strings.Builder

	b.WriteString("#!/bin/sh\n")
	b.WriteString("# Fake evaluation engine interpreter.\n")
	b.WriteString("case \"$1\" in\n")
	b.WriteString("-m)\n")
	b.WriteString("\t# pip upgrades and judge model commands succeed silently.\n")
	b.WriteString("\texit 0\n")
	b.WriteString("\t;;\n")
	b.WriteString("-c)\n")
	b.WriteString("\t;;\n")
	b.WriteString("*)\n")
	b.WriteString("\techo \"unexpected invocation: $*\" >&2\n")
	b.WriteString("\texit 2\n")
	b.WriteString("\t;;\n")
	b.WriteString("esac\n")
	b.WriteString("\n")
	b.WriteString("program=\"$2\"\n")
	fmt.Fprintf(&b, "printf 'call\\n' >> %s\n", shQuote(callLog))
	b.WriteString("\n")
	b.WriteString("case \"$program\" in\n")

	for _, rule := range e.rules {
		fmt.Fprintf(&b, "*%s*)\n", shQuote(rule.marker))
		writeResponse(&b, rule.stdout, rule.stderr, rule.exitCode)
	}

	b.WriteString("*)\n")
	if e.defaultScore != "" {
		writeResponse(&b, e.defaultScore, "", 0)
	} else {
		writeResponse(&b, "", "no engine rule matched the program", 3)
	}
	b.WriteString("esac\n")

	return b.String()
}

func writeResponse(b *strings.Builder, stdout, stderr string, exitCode int) {
	if stdout != "" {
		fmt.Fprintf(b, "\tprintf '%%s\\n' %s\n", shQuote(stdout))
	}
	if stderr != "" {
		fmt.Fprintf(b, "\tprintf '%%s\\n' %s >&2\n", shQuote(stderr))
	}
	fmt.Fprintf(b, "\texit %d\n", exitCode)
	b.WriteString("\t;;\n")
}

// shQuote single-quotes s for use in the generated script, both in case
// patterns and as command arguments.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
