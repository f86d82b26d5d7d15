// Package score turns engine process output into a numeric metric score.
package score

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/deepbridge/deepbridge/pkg/util"
)

// UnparseableError reports engine output that did not contain a score. Both
// streams are preserved verbatim for diagnosis.
type UnparseableError struct {
	Stdout string
	Stderr string
}

func (e *UnparseableError) Error() string {
	out := strings.TrimSpace(e.Stdout)
	if out == "" {
		return fmt.Sprintf("no score on stdout, stderr: %q", util.Truncate(strings.TrimSpace(e.Stderr), 120))
	}

	return fmt.Sprintf("cannot parse score from engine output %q", util.Truncate(out, 120))
}

// Parse extracts the score from an engine invocation's output. Synthesized
// scripts print the score as the only content on stdout, so the whole stream
// is trimmed and parsed as one float. Anything else, NaN and infinities
// included, yields an *UnparseableError carrying both streams verbatim.
// Range checking is the caller's concern.
func Parse(stdout, stderr string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &UnparseableError{Stdout: stdout, Stderr: stderr}
	}

	return value, nil
}
