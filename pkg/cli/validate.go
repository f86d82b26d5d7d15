package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/task"
)

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite-file>",
		Short: "Validate an eval suite file",
		Long: `Check that an eval suite file is well formed without running it: schema,
metric kinds, per-metric required inputs, thresholds and hook script paths.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := task.FromFile(args[0])
			if err != nil {
				return err
			}

			if err := suite.Validate(); err != nil {
				return err
			}

			tests := "tests"
			if len(suite.Tests) == 1 {
				tests = "test"
			}

			color.New(color.FgGreen).Printf("✓ %s is a valid eval suite (%d %s)\n", args[0], len(suite.Tests), tests)
			fmt.Printf("  Suite: %s\n", suite.Metadata.Name)

			return nil
		},
	}

	return cmd
}
