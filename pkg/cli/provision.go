package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepbridge/deepbridge/pkg/bridge"
)

// NewProvisionCmd creates the provision command
func NewProvisionCmd() *cobra.Command {
	engine := &engineOptions{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision the engine environment now",
		Long: `Create the engine's Python environment ahead of time instead of on the
first evaluation. Provisioning an environment that already exists is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := engine.config()
			// This command always creates; --auto-provision only gates
			// implicit provisioning during evaluations.
			cfg.AutoProvision = true

			if err := bridge.New(cfg).Provision(context.Background()); err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("✓ Engine environment ready at %s\n", cfg.Env().Dir())
			if cfg.Model != nil {
				fmt.Printf("  Judge model: %s\n", cfg.Model.Name)
			}

			return nil
		},
	}

	addEngineFlags(cmd, engine)

	return cmd
}
