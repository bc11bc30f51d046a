package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List local models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.manager().ListModels()
			if err != nil {
				return err
			}
			if set.Len() == 0 {
				return fmt.Errorf("no local models found in %s", a.settings.ModelsDir)
			}
			for _, m := range set.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) -> %s\n", m.Name, m.Pipeline, m.Path)
			}
			return nil
		},
	}
}
