package util

import "context"

type contextKey string

const verboseKey contextKey = "verbose"

// WithVerbose returns a context carrying the verbose output flag.
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, verboseKey, verbose)
}

// IsVerbose reports whether verbose output was requested on this context.
// A nil context is quiet.
func IsVerbose(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	verbose, ok := ctx.Value(verboseKey).(bool)
	return ok && verbose
}
