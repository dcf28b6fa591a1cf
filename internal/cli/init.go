package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ondevice-update/internal/model"
)

func initCmd() *cobra.Command {
	var dir string
	var seed int64

	c := &cobra.Command{
		Use:   "init",
		Short: "Write the demo model artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range model.BuiltinNames() {
				a, err := model.Builtin(name, seed)
				if err != nil {
					return err
				}
				path := filepath.Join(dir, name+".json")
				if err := model.Save(path, a); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
			return nil
		},
	}

	c.Flags().StringVar(&dir, "dir", "models", "output directory")
	c.Flags().Int64Var(&seed, "seed", 1, "weight initialization seed")
	return c
}
