package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"ondevice-update/internal/config"
	"ondevice-update/internal/runtime"
	"ondevice-update/internal/trainer"
)

func trainCmd(g *globalFlags) *cobra.Command {
	var o config.Overrides
	var evaluate bool

	c := &cobra.Command{
		Use:   "train",
		Short: "Synthesize a batch and run an incremental update",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("evaluate") {
				o.Evaluate = &evaluate
			}
			cfg, err := g.load(o)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)

			res, err := trainer.Run(cmd.Context(), runtime.NewLocal(log), trainer.RunConfig{
				ModelPath:         cfg.ModelPath,
				Samples:           cfg.Samples,
				ValidationSamples: cfg.ValidationSamples,
				Range:             cfg.Range,
				Seed:              cfg.Seed,
				NumWorkers:        cfg.NumWorkers,
				Evaluate:          cfg.Evaluate,
			}, log)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	c.Flags().StringVarP(&o.ModelPath, "model", "m", "", "model artifact path")
	c.Flags().IntVar(&o.Samples, "samples", 0, "number of training samples")
	c.Flags().Int64Var(&o.Seed, "seed", 0, "sample seed (0 draws a fresh one)")
	c.Flags().IntVar(&o.NumWorkers, "workers", 0, "sample generator workers")
	c.Flags().BoolVar(&evaluate, "evaluate", false, "run a held-out validation pass each epoch")
	return c
}

func printSummary(w io.Writer, res trainer.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Epoch", "Train loss", "Val loss", "Val accuracy"})
	for _, s := range res.Epochs {
		valLoss, valAcc := "-", "-"
		if s.Validation != nil {
			valLoss = formatFloat(s.Validation.Loss)
			valAcc = formatFloat(s.Validation.Accuracy)
		}
		table.Append([]string{strconv.Itoa(s.Epoch + 1), formatFloat(s.TrainLoss), valLoss, valAcc})
	}
	table.Render()

	fmt.Fprintf(w, "model %s: %d records (%d dropped), task %s %s, final loss %s\n",
		res.Model, res.Records, res.Dropped, res.TaskID, res.Completion.State, formatFloat(res.Completion.Loss))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
