package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/rendering"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// NewInspectCmd describes a stored graph or a graph file, optionally as
// render primitives.
func NewInspectCmd() *cobra.Command {
	var (
		scene      bool
		scale      float64
		bondRadius float64
	)

	cmd := &cobra.Command{
		Use:   "inspect KEY|FILE",
		Short: "Describe a stored graph or a graph file",
		Long: "Describe a graph.  An existing file path is read directly (structure JSON\n" +
			"or snapshot); anything else is looked up as a key in the graph store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := rendering.DefaultOptions()
			if cmd.Flags().Changed("scale") {
				if scale <= 0 {
					return errors.New(errors.ErrCodeValidation, "scale must be positive")
				}
				opts.Scale = scale
			}
			if cmd.Flags().Changed("bond-radius") {
				if bondRadius <= 0 {
					return errors.New(errors.ErrCodeValidation, "bond radius must be positive")
				}
				opts.BondRadius = bondRadius
			}

			g, err := loadInspected(cmd, args[0])
			if err != nil {
				return err
			}
			if scene {
				return PrintResult(cmd, &SceneOutput{Source: args[0], Scene: rendering.BuildScene(g, opts)})
			}
			return PrintResult(cmd, newGraphOutput(args[0], g))
		},
	}
	cmd.Flags().BoolVar(&scene, "scene", false, "print sphere and cylinder primitives")
	cmd.Flags().Float64Var(&scale, "scale", 0, "scene scale factor (default 0.4)")
	cmd.Flags().Float64Var(&bondRadius, "bond-radius", 0, "scene bond cylinder radius (default 0.08)")
	return cmd
}

func loadInspected(cmd *cobra.Command, arg string) (*graph.MolecularGraph, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return readGraphFile(arg)
	}
	_, app, err := commandApp(cmd)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(cmd)
	defer cancel()
	return app.Service.LoadGraph(ctx, arg)
}
