package cli

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"ondevice-update/internal/config"
	"ondevice-update/internal/dataset"
	"ondevice-update/internal/predict"
	"ondevice-update/internal/runtime"
	"ondevice-update/internal/trainer"
)

func predictCmd(g *globalFlags) *cobra.Command {
	var o config.Overrides

	c := &cobra.Command{
		Use:   "predict",
		Short: "Predict the class of one random sample",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(o)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			rt := runtime.NewLocal(log)

			m, err := trainer.Invoker{Runtime: rt, Logger: log}.Load(cfg.ModelPath)
			if err != nil {
				return err
			}
			desc := m.Description()
			spec, err := trainer.ExampleSpecFor(desc, cfg.Range)
			if err != nil {
				return err
			}
			input, err := dataset.NewGenerator(cfg.Seed).Tensor(spec.Shape, spec.DType, spec.Range)
			if err != nil {
				return err
			}

			pred, err := predict.Predictor{Runtime: rt, Logger: log}.Predict(m, input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Class", "Label", "Score"})
			for i := 0; i < pred.Scores.Len(); i++ {
				label := ""
				if i < len(desc.ClassLabels) {
					label = desc.ClassLabels[i]
				}
				table.Append([]string{strconv.Itoa(i), label, formatFloat(pred.Scores.At(i))})
			}
			table.Render()
			fmt.Fprintf(out, "prediction: %s (class %d)\n", pred.Label, pred.Class)
			return nil
		},
	}

	c.Flags().StringVarP(&o.ModelPath, "model", "m", "", "model artifact path")
	c.Flags().Int64Var(&o.Seed, "seed", 0, "sample seed (0 draws a fresh one)")
	return c
}
