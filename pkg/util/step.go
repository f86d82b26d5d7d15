package util

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Step is a piece of user-provided shell work, given either inline or as a
// path to a script file. Suite hooks and file-backed CLI inputs both use it.
type Step struct {
	Inline string `json:"inline,omitempty"`
	File   string `json:"file,omitempty"`
}

func (s *Step) IsEmpty() bool {
	if s == nil {
		return true
	}

	return s.File == "" && s.Inline == ""
}

// Run executes the step and returns its combined output.
//
// Plain inline content is piped to the user's shell on stdin and runs in the
// process working directory. Inline content starting with a shebang goes
// through a temp file in the working directory so the shebang is honored;
// the file is removed once the step finishes. A file step runs directly,
// with the script's own directory as its working directory.
func (s *Step) Run(ctx context.Context) (string, error) {
	cmd, cleanup, err := s.command(ctx)
	if err != nil {
		return "", err
	}
	defer cleanup()

	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (s *Step) command(ctx context.Context) (*exec.Cmd, func(), error) {
	noop := func() {}

	if s.Inline == "" {
		cmd, err := s.fileCommand(ctx)
		return cmd, noop, err
	}

	if strings.HasPrefix(strings.TrimSpace(s.Inline), "#!") {
		return s.shebangCommand(ctx)
	}

	cmd := exec.CommandContext(ctx, GetShell())
	cmd.Stdin = strings.NewReader(s.Inline)
	return cmd, noop, nil
}

func (s *Step) shebangCommand(ctx context.Context) (*exec.Cmd, func(), error) {
	tmpFile, err := os.CreateTemp(".", ".deepbridge-step-*.sh")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp script file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.WriteString(s.Inline); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, nil, fmt.Errorf("failed to write temp script: %w", err)
	}
	tmpFile.Close()

	if err := ensureExecutable(tmpPath); err != nil {
		os.Remove(tmpPath)
		return nil, nil, err
	}

	cmd := exec.CommandContext(ctx, tmpPath)
	return cmd, func() { os.Remove(tmpPath) }, nil
}

func (s *Step) fileCommand(ctx context.Context) (*exec.Cmd, error) {
	if err := ensureExecutable(s.File); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.File)
	cmd.Dir = filepath.Dir(s.File)
	return cmd, nil
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode()&0100 != 0 {
		return nil
	}

	if err := os.Chmod(path, info.Mode()|0111); err != nil {
		return fmt.Errorf("failed to make script executable: %w", err)
	}

	return nil
}

// GetValue returns the step's content: the inline text, or the file's
// contents.
func (s *Step) GetValue() (string, error) {
	if s.Inline != "" {
		return s.Inline, nil
	}

	b, err := os.ReadFile(s.File)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// GetShell returns the shell used for inline steps: $SHELL, defaulting to
// /usr/bin/bash.
func GetShell() string {
	shell, ok := os.LookupEnv("SHELL")
	if !ok {
		shell = "/usr/bin/bash"
	}

	return shell
}
