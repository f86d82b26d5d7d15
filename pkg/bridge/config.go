package bridge

import (
	"context"
	"fmt"

	"github.com/deepbridge/deepbridge/pkg/pyenv"
	"github.com/deepbridge/deepbridge/pkg/util"
)

// Verbosity controls how much progress the bridge reports while working.
type Verbosity string

const (
	VerbosityQuiet   Verbosity = "quiet"
	VerbosityNormal  Verbosity = "normal"
	VerbosityVerbose Verbosity = "verbose"
)

// Config is the bridge's process-wide configuration. Every field is
// optional; the zero value evaluates against a default environment that
// must already exist on disk.
//
// The bridge copies a Config whenever one crosses its boundary, so callers
// can mutate their own copy freely without racing an in-flight evaluation.
type Config struct {
	// Python overrides the host interpreter used to create the engine
	// environment.
	Python string `json:"python,omitempty"`
	// EnvPath overrides the engine environment directory.
	EnvPath string `json:"envPath,omitempty"`
	// AutoProvision lets the bridge create a missing environment on first
	// use.
	AutoProvision bool `json:"autoProvision,omitempty"`
	// Verbosity selects quiet, normal or verbose progress output.
	Verbosity Verbosity `json:"verbosity,omitempty"`
	// Model selects the engine's judge model. Nil keeps the engine
	// default.
	Model *pyenv.Model `json:"model,omitempty"`
}

// Env derives the environment description handed to the provisioner.
func (c Config) Env() pyenv.Env {
	return pyenv.Env{
		Python:        c.Python,
		Path:          c.EnvPath,
		AutoProvision: c.AutoProvision,
	}
}

// clone returns an independent copy, Model included.
func (c Config) clone() Config {
	out := c
	if c.Model != nil {
		model := *c.Model
		out.Model = &model
	}

	return out
}

// verboseContext upgrades ctx when the configuration asks for verbose
// progress.
func (c Config) verboseContext(ctx context.Context) context.Context {
	if c.Verbosity == VerbosityVerbose && !util.IsVerbose(ctx) {
		return util.WithVerbose(ctx, true)
	}

	return ctx
}

// ConfigError reports configuration the bridge cannot work with.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
