package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ExitError carries the engine's exit code through cobra so main can
// propagate it verbatim.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("engine suite exited with code %d", e.Code)
}

// NewSuiteCmd creates the suite command for running native engine suites.
func NewSuiteCmd() *cobra.Command {
	engine := &engineOptions{}

	cmd := &cobra.Command{
		Use:   "suite <path> [-- engine-args...]",
		Short: "Run a native engine test suite",
		Long: `Run a test suite written for the engine's own suite runner. The engine's
accounting decides the outcome; its exit code is propagated verbatim.

Arguments after -- are handed to the engine runner untouched:

  deepbridge suite evals/test_chatbot.py
  deepbridge suite evals/ -- -k relevancy`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			code, err := engine.bridge().RunSuite(ctx, args[0], args[1:]...)
			if err != nil {
				return err
			}

			if code != 0 {
				return &ExitError{Code: code}
			}

			return nil
		},
	}

	addEngineFlags(cmd, engine)

	return cmd
}
