package cli

import (
	"github.com/spf13/cobra"

	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
)

// NewReagentsCmd lists the reagent catalog.
func NewReagentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reagents",
		Short: "List supported reagents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, ReagentList(domainRxn.Catalog()))
		},
	}
}
