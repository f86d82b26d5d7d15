// Package pyenv provisions and maintains the isolated Python environment
// that hosts the evaluation engine.
package pyenv

import (
	"os"
	"path/filepath"
	"runtime"
)

// Env describes where the engine's environment lives and how to bootstrap
// it. The zero value selects the platform defaults with auto-provisioning
// disabled.
type Env struct {
	// Python is the host interpreter used to create the environment.
	// Empty selects DefaultPython().
	Python string `json:"python,omitempty"`
	// Path is the environment directory. Empty selects DefaultPath().
	Path string `json:"path,omitempty"`
	// AutoProvision lets Ensure create a missing environment. When false,
	// Ensure fails with ErrDisabled instead.
	AutoProvision bool `json:"autoProvision,omitempty"`
}

// Model configures the judge model the engine uses for LLM-backed metrics.
type Model struct {
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

// DefaultPython returns the host interpreter used when none is configured.
func DefaultPython() string {
	if runtime.GOOS == "windows" {
		return "python"
	}

	return "python3"
}

// DefaultPath returns the environment directory used when none is
// configured: .deepbridge/venv under the user's home directory, or relative
// to the working directory when home cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".deepbridge", "venv")
	}

	return filepath.Join(home, ".deepbridge", "venv")
}

// HostPython returns the interpreter that creates the environment.
func (e Env) HostPython() string {
	if e.Python != "" {
		return e.Python
	}

	return DefaultPython()
}

// Dir returns the environment directory.
func (e Env) Dir() string {
	if e.Path != "" {
		return e.Path
	}

	return DefaultPath()
}

// Interpreter returns the environment's own interpreter, used for every
// engine invocation once the environment exists.
func (e Env) Interpreter() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.Dir(), "Scripts", "python.exe")
	}

	return filepath.Join(e.Dir(), "bin", "python")
}

// Exists reports whether the environment directory is present on disk.
func (e Env) Exists() bool {
	info, err := os.Stat(e.Dir())
	return err == nil && info.IsDir()
}
