package eval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deepbridge/deepbridge/pkg/metric"
	"github.com/deepbridge/deepbridge/pkg/task"
	"github.com/deepbridge/deepbridge/pkg/util"
)

// Evaluator scores a single metric request. bridge.Bridge implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, req metric.Request) (*metric.Outcome, error)
}

// TestResult is the outcome of one test in a suite. Stdout and Stderr are
// only kept when the test did not pass, so failures can be inspected later.
type TestResult struct {
	TestName  string            `json:"testName"`
	Metric    metric.Kind       `json:"metric"`
	Labels    map[string]string `json:"labels,omitempty"`
	Score     float64           `json:"score"`
	Threshold float64           `json:"threshold"`
	Passed    bool              `json:"passed"`
	Error     string            `json:"error,omitempty"`
	Stdout    string            `json:"stdout,omitempty"`
	Stderr    string            `json:"stderr,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

type SuiteRunner interface {
	Run(ctx context.Context, namePattern string) ([]*TestResult, error)
	RunWithProgress(ctx context.Context, namePattern string, callback ProgressCallback) ([]*TestResult, error)
}

type suiteRunner struct {
	suite       *task.Suite
	evaluator   Evaluator
	parallelism int

	// mu serializes progress callbacks from concurrently running tests.
	mu               sync.Mutex
	progressCallback ProgressCallback
}

var _ SuiteRunner = &suiteRunner{}

type RunnerOption func(*suiteRunner)

// WithParallelism sets how many tests may run at once. The default is 1.
// Results keep suite order regardless of the limit.
func WithParallelism(n int) RunnerOption {
	return func(r *suiteRunner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// NewRunner creates a SuiteRunner that scores each test in the suite through
// the given evaluator.
func NewRunner(suite *task.Suite, evaluator Evaluator, opts ...RunnerOption) (SuiteRunner, error) {
	if suite == nil {
		return nil, fmt.Errorf("suite cannot be nil")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}

	r := &suiteRunner{
		suite:            suite,
		evaluator:        evaluator,
		parallelism:      1,
		progressCallback: NoopProgressCallback,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func (r *suiteRunner) Run(ctx context.Context, namePattern string) ([]*TestResult, error) {
	return r.RunWithProgress(ctx, namePattern, NoopProgressCallback)
}

func (r *suiteRunner) RunWithProgress(ctx context.Context, namePattern string, callback ProgressCallback) ([]*TestResult, error) {
	if callback == nil {
		callback = NoopProgressCallback
	}

	r.mu.Lock()
	r.progressCallback = callback
	r.mu.Unlock()

	if namePattern == "" {
		namePattern = "." // match everything (any character matches all test names)
	}

	nameMatcher, err := regexp.Compile(namePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regexp for test name match: %w", err)
	}

	r.emit(ProgressEvent{
		Type:    EventSuiteStart,
		Message: fmt.Sprintf("Starting suite: %s", r.suite.Metadata.Name),
	})

	if err := r.suite.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite '%s': %w", r.suite.Metadata.Name, err)
	}

	if err := r.runHook(ctx, EventSuiteSetup, "setup", r.suite.Hooks.Setup); err != nil {
		return nil, err
	}

	selected := make([]task.Test, 0, len(r.suite.Tests))
	for _, test := range r.suite.Tests {
		if nameMatcher.MatchString(test.Name) {
			selected = append(selected, test)
		}
	}

	results := make([]*TestResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, test := range selected {
		g.Go(func() error {
			results[i] = r.runTest(gctx, test)
			return nil
		})
	}

	runErr := g.Wait()

	runErr = errors.Join(runErr, r.runHook(ctx, EventSuiteTeardown, "teardown", r.suite.Hooks.Teardown))

	r.emit(ProgressEvent{
		Type:    EventSuiteComplete,
		Message: fmt.Sprintf("Suite complete: %s", r.suite.Metadata.Name),
	})

	return results, runErr
}

func (r *suiteRunner) runHook(ctx context.Context, event EventType, name string, hook *util.Step) error {
	if hook.IsEmpty() {
		return nil
	}

	r.emit(ProgressEvent{
		Type:    event,
		Message: fmt.Sprintf("Running %s hook", name),
	})

	out, err := hook.Run(ctx)
	if err != nil {
		if trimmed := strings.TrimSpace(out); trimmed != "" {
			return fmt.Errorf("%s hook failed: %w: %s", name, err, trimmed)
		}
		return fmt.Errorf("%s hook failed: %w", name, err)
	}

	return nil
}

func (r *suiteRunner) runTest(ctx context.Context, test task.Test) *TestResult {
	result := &TestResult{
		TestName:  test.Name,
		Metric:    test.Kind,
		Labels:    test.Labels,
		Threshold: test.EffectiveThreshold(),
	}

	r.emit(ProgressEvent{
		Type:    EventTestStart,
		Message: fmt.Sprintf("Running test: %s", test.Name),
		Test:    result,
	})

	start := time.Now()
	outcome, err := r.evaluator.Evaluate(ctx, test.Request)
	result.Duration = time.Since(start)

	if outcome != nil {
		result.Score = outcome.Score
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Passed = result.Score >= result.Threshold
	}

	if (err != nil || !result.Passed) && outcome != nil {
		result.Stdout = outcome.Stdout
		result.Stderr = outcome.Stderr
	}

	r.emit(ProgressEvent{
		Type:    EventTestComplete,
		Message: fmt.Sprintf("Completed test: %s (passed: %v)", test.Name, result.Passed),
		Test:    result,
	})

	return result
}

func (r *suiteRunner) emit(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progressCallback(event)
}
