package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/recognition"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage/filestore"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

type reactFlags struct {
	reagent string
	persist bool
	strict  bool
	outDir  string
}

func (f *reactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.reagent, "reagent", "r", "", "reagent display name, see 'archem reagents' [REQUIRED]")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "save reactant and product to the configured graph store")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "reject reagents outside the catalog")
	cmd.Flags().StringVar(&f.outDir, "out", "", "also write reactant and product snapshots to this directory")
	_ = cmd.MarkFlagRequired("reagent")
}

// NewReactCmd runs a reaction on a structure file, or on ethene when no
// file is given.
func NewReactCmd() *cobra.Command {
	var (
		flags reactFlags
		input string
	)

	cmd := &cobra.Command{
		Use:   "react",
		Short: "Apply a reagent to a reactant structure",
		Long: "Apply a reagent to a reactant read from --input (structure JSON or snapshot).\n" +
			"Without --input the reactant is ethene.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reactant *graph.MolecularGraph
			if input != "" {
				g, err := readGraphFile(input)
				if err != nil {
					return err
				}
				reactant = g
			} else {
				reactant = recognition.EtheneGraph()
			}

			_, app, err := commandApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			res, err := app.Service.React(ctx, &appRxn.ReactInput{
				Reactant:    reactant,
				ReagentName: flags.reagent,
				Persist:     flags.persist,
				Strict:      flags.strict,
			})
			if err != nil {
				return err
			}
			return finishReaction(ctx, cmd, app.Logger, res, flags.outDir)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "reactant file (structure JSON or snapshot)")
	return cmd
}

// NewRecognizeCmd sends a photograph to the recognition backend and runs
// the reaction on the recognized reactant.
func NewRecognizeCmd() *cobra.Command {
	var flags reactFlags

	cmd := &cobra.Command{
		Use:   "recognize IMAGE",
		Short: "Recognize a reactant in a photograph and react it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeNotFound, "cannot open image").WithDetail("path=" + args[0])
			}
			defer f.Close()

			_, app, err := commandApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			res, err := app.Service.ProcessImage(ctx, &appRxn.ProcessImageInput{
				Image:       recognition.Image{Filename: filepath.Base(args[0]), Data: f},
				ReagentName: flags.reagent,
				Persist:     flags.persist,
				Strict:      flags.strict,
			})
			if err != nil {
				return err
			}
			return finishReaction(ctx, cmd, app.Logger, res, flags.outDir)
		},
	}
	flags.register(cmd)
	return cmd
}

func finishReaction(ctx context.Context, cmd *cobra.Command, logger logging.Logger, res *appRxn.ReactResult, outDir string) error {
	out := newReactionOutput(res)
	if outDir != "" {
		paths, err := exportPair(ctx, outDir, logger, res)
		if err != nil {
			return err
		}
		out.Exported = paths
	}
	return PrintResult(cmd, out)
}

// exportPair writes reactant and product into dir under the store's
// <prefix>_<millis> naming.
func exportPair(ctx context.Context, dir string, logger logging.Logger, res *appRxn.ReactResult) ([]string, error) {
	store, err := filestore.New(dir, logger)
	if err != nil {
		return nil, err
	}
	reactantKey, err := store.Save(ctx, storage.PrefixReactant, res.Reactant)
	if err != nil {
		return nil, err
	}
	productKey, err := store.Save(ctx, storage.PrefixProduct, res.Product)
	if err != nil {
		return nil, err
	}
	return []string{filepath.Join(dir, reactantKey), filepath.Join(dir, productKey)}, nil
}
