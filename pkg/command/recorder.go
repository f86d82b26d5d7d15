package command

import (
	"context"
	"strings"
	"sync"
)

// Recorder is a Runner test double. It records every call and delegates to
// RunFunc for the response. A nil RunFunc makes every call succeed with an
// empty Result. Safe for concurrent use.
type Recorder struct {
	RunFunc func(ctx context.Context, name string, args ...string) (*Result, error)

	mu    sync.Mutex
	calls []Call
}

// Call records a single Run invocation.
type Call struct {
	Name string
	Args []string
}

// Command renders the call as one space-joined line, convenient for matching
// in tests.
func (c Call) Command() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

var _ Runner = &Recorder{}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	fn := r.RunFunc
	r.mu.Unlock()

	if fn == nil {
		return &Result{}, nil
	}

	return fn(ctx, name, args...)
}

// Calls returns a copy of all recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CountMatching returns how many recorded calls contain substr in their
// command line.
func (r *Recorder) CountMatching(substr string) int {
	count := 0
	for _, call := range r.Calls() {
		if strings.Contains(call.Command(), substr) {
			count++
		}
	}

	return count
}

// Reset clears the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
