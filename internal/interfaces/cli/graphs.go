package cli

import (
	"github.com/spf13/cobra"
)

// NewGraphsCmd manages the configured graph store.
func NewGraphsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "List or delete stored graphs",
	}
	cmd.AddCommand(newGraphsListCmd(), newGraphsDeleteCmd())
	return cmd
}

func newGraphsListCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored graph keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, err := commandApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			keys, err := app.Service.ListGraphs(ctx, prefix)
			if err != nil {
				return err
			}
			return PrintResult(cmd, KeyList(keys))
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only keys starting with this prefix (reactant, product)")
	return cmd
}

func newGraphsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY...",
		Short: "Delete stored graphs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, err := commandApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			for _, key := range args {
				if err := app.Service.DeleteGraph(ctx, key); err != nil {
					return err
				}
				PrintSuccess(cmd, "deleted "+key)
			}
			return nil
		},
	}
}
