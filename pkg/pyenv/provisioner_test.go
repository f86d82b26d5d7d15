package pyenv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepbridge/deepbridge/pkg/command"
)

func missingEnv(t *testing.T) Env {
	t.Helper()
	return Env{
		Python:        "python3",
		Path:          filepath.Join(t.TempDir(), "venv"),
		AutoProvision: true,
	}
}

func existingEnv(t *testing.T) Env {
	t.Helper()
	return Env{Python: "python3", Path: t.TempDir()}
}

func TestEnsureCreatesMissingEnvironment(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)
	env := missingEnv(t)

	require.NoError(t, provisioner.Ensure(context.Background(), env, nil))

	calls := recorder.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, fmt.Sprintf("python3 -m venv %s", env.Dir()), calls[0].Command())
	assert.Equal(t, fmt.Sprintf("%s -m pip install --upgrade pip", env.Interpreter()), calls[1].Command())
	assert.Equal(t, fmt.Sprintf("%s -m pip install deepeval", env.Interpreter()), calls[2].Command())
}

func TestEnsureUpgradesExistingEnvironment(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)
	env := existingEnv(t)

	require.NoError(t, provisioner.Ensure(context.Background(), env, nil))

	calls := recorder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fmt.Sprintf("%s -m pip install --upgrade deepeval", env.Interpreter()), calls[0].Command())
}

func TestEnsureDisabled(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)
	env := missingEnv(t)
	env.AutoProvision = false

	err := provisioner.Ensure(context.Background(), env, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisabled)

	provisionErr := &ProvisionError{}
	assert.ErrorAs(t, err, &provisionErr)
	assert.Empty(t, recorder.Calls(), "no process may launch when provisioning is disabled")
}

func TestEnsureIsIdempotent(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)
	env := existingEnv(t)

	require.NoError(t, provisioner.Ensure(context.Background(), env, nil))
	require.NoError(t, provisioner.Ensure(context.Background(), env, nil))
	require.NoError(t, provisioner.Ensure(context.Background(), env, nil))

	assert.Len(t, recorder.Calls(), 1, "repeat calls must not re-provision")
}

func TestEnsureReprovisionsWhenPathChanges(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)

	first := existingEnv(t)
	second := existingEnv(t)

	require.NoError(t, provisioner.Ensure(context.Background(), first, nil))
	require.NoError(t, provisioner.Ensure(context.Background(), second, nil))
	require.NoError(t, provisioner.Ensure(context.Background(), second, nil))

	assert.Len(t, recorder.Calls(), 2, "each distinct path provisions once")
}

func TestEnsureConcurrentCallersProvisionOnce(t *testing.T) {
	recorder := &command.Recorder{
		RunFunc: func(ctx context.Context, name string, args ...string) (*command.Result, error) {
			// Widen the race window so late arrivals hit a provisioning
			// already in flight.
			time.Sleep(5 * time.Millisecond)
			return &command.Result{}, nil
		},
	}
	provisioner := New(recorder)
	env := missingEnv(t)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = provisioner.Ensure(context.Background(), env, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}

	assert.Len(t, recorder.Calls(), 3, "exactly one create/install sequence")
	assert.Equal(t, 1, recorder.CountMatching("-m venv"))
	assert.Equal(t, 1, recorder.CountMatching("pip install deepeval"))
}

func TestEnsureFailedStepCarriesStderr(t *testing.T) {
	pipStderr := "ERROR: No matching distribution found for deepeval"
	recorder := &command.Recorder{
		RunFunc: func(ctx context.Context, name string, args ...string) (*command.Result, error) {
			if strings.Contains(strings.Join(args, " "), "pip install deepeval") {
				return &command.Result{Stderr: pipStderr, ExitCode: 1}, nil
			}
			return &command.Result{}, nil
		},
	}
	provisioner := New(recorder)
	env := missingEnv(t)

	err := provisioner.Ensure(context.Background(), env, nil)
	require.Error(t, err)

	provisionErr := &ProvisionError{}
	require.ErrorAs(t, err, &provisionErr)
	assert.Equal(t, "install deepeval", provisionErr.Step)
	assert.Equal(t, pipStderr, provisionErr.Stderr)
	assert.Contains(t, err.Error(), "exit code 1")

	// The failed call leaves the environment unready; a later Ensure is
	// allowed to try again.
	before := len(recorder.Calls())
	_ = provisioner.Ensure(context.Background(), env, nil)
	assert.Greater(t, len(recorder.Calls()), before)
}

func TestEnsureWrapsLaunchFailures(t *testing.T) {
	launchErr := &command.LaunchError{Path: "python3", Err: errors.New("executable file not found in $PATH")}
	recorder := &command.Recorder{
		RunFunc: func(ctx context.Context, name string, args ...string) (*command.Result, error) {
			return nil, launchErr
		},
	}
	provisioner := New(recorder)

	err := provisioner.Ensure(context.Background(), missingEnv(t), nil)
	require.Error(t, err)

	provisionErr := &ProvisionError{}
	require.ErrorAs(t, err, &provisionErr)

	gotLaunch := &command.LaunchError{}
	assert.ErrorAs(t, err, &gotLaunch)
}

func TestEnsureAppliesConfiguredModel(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)
	env := missingEnv(t)
	model := &Model{
		Name:    "gpt-oss",
		BaseURL: "http://localhost:11434/v1",
		APIKey:  "ollama",
	}

	require.NoError(t, provisioner.Ensure(context.Background(), env, model))

	calls := recorder.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t,
		fmt.Sprintf("%s -m deepeval set-local-model --model-name=gpt-oss --base-url=http://localhost:11434/v1 --api-key=ollama", env.Interpreter()),
		calls[3].Command())
}

func TestSetModelRequiresName(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)

	err := provisioner.SetModel(context.Background(), existingEnv(t), &Model{})
	require.Error(t, err)
	assert.Empty(t, recorder.Calls())
}

func TestUnsetModel(t *testing.T) {
	recorder := &command.Recorder{}
	provisioner := New(recorder)
	env := existingEnv(t)

	require.NoError(t, provisioner.UnsetModel(context.Background(), env))

	calls := recorder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fmt.Sprintf("%s -m deepeval unset-local-model", env.Interpreter()), calls[0].Command())
}

func TestEnvDefaults(t *testing.T) {
	env := Env{}
	assert.Equal(t, DefaultPython(), env.HostPython())
	assert.Contains(t, env.Dir(), filepath.Join(".deepbridge", "venv"))
	assert.Equal(t, env.Dir(), filepath.Dir(filepath.Dir(env.Interpreter())))

	env = Env{Python: "python3.12", Path: "/opt/eval/venv"}
	assert.Equal(t, "python3.12", env.HostPython())
	assert.Equal(t, "/opt/eval/venv", env.Dir())
}
