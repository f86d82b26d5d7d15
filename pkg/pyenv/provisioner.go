package pyenv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/deepbridge/deepbridge/pkg/command"
	"github.com/deepbridge/deepbridge/pkg/util"
)

// ErrDisabled reports a missing environment that Ensure was not allowed to
// create. Branch on it with errors.Is.
var ErrDisabled = errors.New("environment does not exist and auto-provisioning is disabled")

// ProvisionError reports a failed provisioning step. Fatal to the calling
// evaluation; never retried within the call.
type ProvisionError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Step, e.Err)
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, util.Truncate(out, 200))
	}

	return msg
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Provisioner owns the one-time setup of the engine environment: readiness
// is remembered per environment directory, so repeat Ensure calls return
// immediately and configuring a different directory re-provisions.
//
// One Provisioner is shared by every caller that needs the environment.
// Safe for concurrent use.
type Provisioner struct {
	runner command.Runner

	mu        sync.RWMutex
	readyPath string
}

// New returns a Provisioner that launches processes through runner.
func New(runner command.Runner) *Provisioner {
	return &Provisioner{runner: runner}
}

// Ensure makes the configured environment ready: present on disk with a
// current engine package, and the judge model applied when one is set.
//
// Concurrent first callers produce exactly one provisioning sequence;
// callers arriving while provisioning runs wait for it to finish rather
// than racing ahead.
func (p *Provisioner) Ensure(ctx context.Context, env Env, model *Model) error {
	path := env.Dir()

	p.mu.RLock()
	ready := p.readyPath == path
	p.mu.RUnlock()
	if ready {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have provisioned while we waited for the lock.
	if p.readyPath == path {
		return nil
	}

	if err := p.provision(ctx, env, model); err != nil {
		return err
	}

	p.readyPath = path

	return nil
}

func (p *Provisioner) provision(ctx context.Context, env Env, model *Model) error {
	if !env.Exists() {
		if !env.AutoProvision {
			return &ProvisionError{Step: "locate environment", Err: ErrDisabled}
		}

		if err := p.create(ctx, env); err != nil {
			return err
		}
	} else {
		// An existing environment may carry a stale engine package.
		if err := p.runStep(ctx, "upgrade deepeval", env.Interpreter(), "-m", "pip", "install", "--upgrade", "deepeval"); err != nil {
			return err
		}
	}

	if model != nil {
		if err := p.applyModel(ctx, env, model); err != nil {
			return err
		}
	}

	return nil
}

func (p *Provisioner) create(ctx context.Context, env Env) error {
	steps := []struct {
		name string
		cmd  []string
	}{
		{"create environment", []string{env.HostPython(), "-m", "venv", env.Dir()}},
		{"upgrade pip", []string{env.Interpreter(), "-m", "pip", "install", "--upgrade", "pip"}},
		{"install deepeval", []string{env.Interpreter(), "-m", "pip", "install", "deepeval"}},
	}

	for _, step := range steps {
		if err := p.runStep(ctx, step.name, step.cmd[0], step.cmd[1:]...); err != nil {
			return err
		}
	}

	return nil
}

// SetModel points the engine at a judge model. The environment must already
// be ensured.
func (p *Provisioner) SetModel(ctx context.Context, env Env, model *Model) error {
	return p.applyModel(ctx, env, model)
}

// UnsetModel restores the engine's default judge model.
func (p *Provisioner) UnsetModel(ctx context.Context, env Env) error {
	return p.runStep(ctx, "unset judge model", env.Interpreter(), "-m", "deepeval", "unset-local-model")
}

func (p *Provisioner) applyModel(ctx context.Context, env Env, model *Model) error {
	if model == nil || model.Name == "" {
		return &ProvisionError{Step: "set judge model", Err: errors.New("model name is empty")}
	}

	args := []string{"-m", "deepeval", "set-local-model", "--model-name=" + model.Name}
	if model.BaseURL != "" {
		args = append(args, "--base-url="+model.BaseURL)
	}
	if model.APIKey != "" {
		args = append(args, "--api-key="+model.APIKey)
	}

	return p.runStep(ctx, "set judge model", env.Interpreter(), args...)
}

// runStep launches one provisioning command. Provisioning is the one layer
// that judges exit codes itself: pip legitimately warns on stderr with exit
// 0, so only a non-zero exit fails the step, with stderr attached.
func (p *Provisioner) runStep(ctx context.Context, step string, name string, args ...string) error {
	if util.IsVerbose(ctx) {
		fmt.Printf("  → %s\n", step)
	}

	result, err := p.runner.Run(ctx, name, args...)
	if err != nil {
		return &ProvisionError{Step: step, Err: err}
	}

	if result.ExitCode != 0 {
		return &ProvisionError{
			Step:   step,
			Stderr: result.Stderr,
			Err:    fmt.Errorf("exit code %d", result.ExitCode),
		}
	}

	return nil
}
