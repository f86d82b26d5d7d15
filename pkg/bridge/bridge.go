// Package bridge orchestrates evaluations against the external metrics
// engine: it keeps the engine's environment provisioned, synthesizes one
// invocation per request, runs it, and parses the score back out.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/deepbridge/deepbridge/pkg/command"
	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/pyenv"
	"github.com/deepbridge/deepbridge/pkg/score"
	"github.com/deepbridge/deepbridge/pkg/script"
	"github.com/deepbridge/deepbridge/pkg/util"
)

// ContractError reports a parsed score outside the engine's [0, 1]
// contract. The score is never clamped; the call fails instead.
type ContractError struct {
	Kind  metric.Kind
	Score float64
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s score %v is outside [0, 1]", e.Kind, e.Score)
}

// Bridge drives the external evaluation engine.
//
// A Bridge is safe for concurrent use: each evaluation owns its own engine
// process, and the only shared state is the configuration snapshot and the
// provisioner's readiness flag. Evaluations read the configuration once at
// the start of the call and keep that snapshot throughout.
type Bridge struct {
	runner      command.Runner
	provisioner *pyenv.Provisioner

	mu  sync.RWMutex
	cfg Config
}

// New returns a Bridge with the given configuration and a real process
// runner.
func New(cfg Config) *Bridge {
	return NewWithRunner(cfg, command.NewRunner())
}

// NewWithRunner returns a Bridge that launches every process through
// runner. Tests substitute a command.Recorder here.
func NewWithRunner(cfg Config, runner command.Runner) *Bridge {
	return &Bridge{
		runner:      runner,
		provisioner: pyenv.New(runner),
		cfg:         cfg.clone(),
	}
}

// Configure atomically replaces the bridge configuration. The bridge keeps
// its own copy, so later mutation of cfg by the caller has no effect; calls
// already in flight keep the snapshot they started with.
func (b *Bridge) Configure(cfg Config) {
	cloned := cfg.clone()

	b.mu.Lock()
	b.cfg = cloned
	b.mu.Unlock()
}

// GetConfiguration returns an independent copy of the current
// configuration.
func (b *Bridge) GetConfiguration() Config {
	return b.snapshot()
}

func (b *Bridge) snapshot() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.clone()
}

// EvaluateRelevancy scores how well actualOutput answers prompt.
func (b *Bridge) EvaluateRelevancy(ctx context.Context, prompt, actualOutput string) (float64, error) {
	return b.evaluateScore(ctx, metric.Request{
		Kind:         metric.KindRelevancy,
		Prompt:       prompt,
		ActualOutput: actualOutput,
	})
}

// EvaluateCorrectness scores actualOutput against expectedOutput.
func (b *Bridge) EvaluateCorrectness(ctx context.Context, actualOutput, expectedOutput string) (float64, error) {
	return b.evaluateScore(ctx, metric.Request{
		Kind:           metric.KindCorrectness,
		ActualOutput:   actualOutput,
		ExpectedOutput: expectedOutput,
	})
}

// EvaluateCorrectnessWithPrompt additionally hands the engine the prompt
// that produced actualOutput.
func (b *Bridge) EvaluateCorrectnessWithPrompt(ctx context.Context, prompt, actualOutput, expectedOutput string) (float64, error) {
	return b.evaluateScore(ctx, metric.Request{
		Kind:           metric.KindCorrectness,
		Prompt:         prompt,
		ActualOutput:   actualOutput,
		ExpectedOutput: expectedOutput,
	})
}

// EvaluateFaithfulness scores whether actualOutput stays grounded in
// retrievalContext.
func (b *Bridge) EvaluateFaithfulness(ctx context.Context, prompt, retrievalContext, actualOutput string) (float64, error) {
	return b.evaluateScore(ctx, metric.Request{
		Kind:         metric.KindFaithfulness,
		Prompt:       prompt,
		Context:      retrievalContext,
		ActualOutput: actualOutput,
	})
}

// EvaluateSimilarity scores semantic similarity between a reference text
// and a generated text.
func (b *Bridge) EvaluateSimilarity(ctx context.Context, reference, generated string) (float64, error) {
	return b.evaluateScore(ctx, metric.Request{
		Kind:         metric.KindSimilarity,
		Prompt:       reference,
		ActualOutput: generated,
	})
}

func (b *Bridge) evaluateScore(ctx context.Context, req metric.Request) (float64, error) {
	outcome, err := b.Evaluate(ctx, req)
	if err != nil {
		return 0, err
	}

	return outcome.Score, nil
}

// Evaluate runs one request through the engine: ensure the environment,
// build the program, run it, parse the score. The sequence short-circuits
// on the first failure and never substitutes a default score.
//
// When the engine ran but its output was unusable, the returned Outcome
// carries the raw streams alongside the error so callers can inspect them;
// the error remains authoritative.
func (b *Bridge) Evaluate(ctx context.Context, req metric.Request) (*metric.Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, wrapEvaluate(req, &ConfigError{Err: err})
	}

	cfg := b.snapshot()
	ctx = cfg.verboseContext(ctx)

	env := cfg.Env()
	if err := b.provisioner.Ensure(ctx, env, cfg.Model); err != nil {
		return nil, wrapEvaluate(req, err)
	}

	program, err := script.ForMetric(req)
	if err != nil {
		return nil, wrapEvaluate(req, err)
	}

	if util.IsVerbose(ctx) {
		fmt.Printf("  → running %s evaluation\n", req.Kind)
	}

	result, err := b.runner.Run(ctx, env.Interpreter(), "-c", program)
	if err != nil {
		return nil, wrapEvaluate(req, err)
	}

	outcome := &metric.Outcome{Stdout: result.Stdout, Stderr: result.Stderr}

	// The engine may exit non-zero after printing a score (an engine-side
	// threshold failure does exactly that), so the parse decides, not the
	// exit code.
	value, err := score.Parse(result.Stdout, result.Stderr)
	if err != nil {
		return outcome, wrapEvaluate(req, err)
	}

	if value < 0 || value > 1 {
		return outcome, wrapEvaluate(req, &ContractError{Kind: req.Kind, Score: value})
	}

	outcome.Score = value
	outcome.Succeeded = true

	return outcome, nil
}

// RunSuite runs a native engine test suite at path and returns the engine's
// exit code verbatim. The suite runner's own accounting is the sole
// pass/fail signal; stderr is informational. The error reports bridge-side
// failures only (provisioning, launch).
func (b *Bridge) RunSuite(ctx context.Context, path string, extra ...string) (int, error) {
	cfg := b.snapshot()
	ctx = cfg.verboseContext(ctx)

	env := cfg.Env()
	if err := b.provisioner.Ensure(ctx, env, cfg.Model); err != nil {
		return 0, fmt.Errorf("run suite '%s': %w", path, err)
	}

	result, err := b.runner.Run(ctx, env.Interpreter(), script.SuiteArgs(path, extra...)...)
	if err != nil {
		return 0, fmt.Errorf("run suite '%s': %w", path, err)
	}

	return result.ExitCode, nil
}

// Provision forces environment setup now rather than on first evaluation.
func (b *Bridge) Provision(ctx context.Context) error {
	cfg := b.snapshot()
	ctx = cfg.verboseContext(ctx)

	if err := b.provisioner.Ensure(ctx, cfg.Env(), cfg.Model); err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	return nil
}

// SetModel ensures the environment, points the engine at the judge model,
// and records it in the bridge configuration.
func (b *Bridge) SetModel(ctx context.Context, model pyenv.Model) error {
	if model.Name == "" {
		return &ConfigError{Err: errors.New("model name is required")}
	}

	cfg := b.snapshot()
	ctx = cfg.verboseContext(ctx)

	env := cfg.Env()
	if err := b.provisioner.Ensure(ctx, env, nil); err != nil {
		return fmt.Errorf("set model '%s': %w", model.Name, err)
	}

	if err := b.provisioner.SetModel(ctx, env, &model); err != nil {
		return fmt.Errorf("set model '%s': %w", model.Name, err)
	}

	b.mu.Lock()
	b.cfg.Model = &model
	b.mu.Unlock()

	return nil
}

// ResetModel ensures the environment, restores the engine's default judge
// model, and clears the configured one.
func (b *Bridge) ResetModel(ctx context.Context) error {
	cfg := b.snapshot()
	ctx = cfg.verboseContext(ctx)

	env := cfg.Env()
	if err := b.provisioner.Ensure(ctx, env, nil); err != nil {
		return fmt.Errorf("reset model: %w", err)
	}

	if err := b.provisioner.UnsetModel(ctx, env); err != nil {
		return fmt.Errorf("reset model: %w", err)
	}

	b.mu.Lock()
	b.cfg.Model = nil
	b.mu.Unlock()

	return nil
}

// wrapEvaluate adds call context to an evaluation failure: the metric kind
// and a short preview of the text under evaluation. The typed cause stays
// reachable through errors.Is and errors.As.
func wrapEvaluate(req metric.Request, err error) error {
	preview := req.ActualOutput
	if preview == "" {
		preview = req.Prompt
	}
	if preview == "" {
		return fmt.Errorf("evaluate %s: %w", req.Kind, err)
	}

	return fmt.Errorf("evaluate %s (%q): %w", req.Kind, util.Truncate(preview, 80), err)
}
