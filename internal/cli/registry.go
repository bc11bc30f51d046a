package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ovid/internal/config"
)

func newRegistryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "List downloadable models from the registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalog()
			if err != nil {
				return err
			}
			if cat.Len() == 0 {
				return fmt.Errorf("no registry found at %s; create registry.json or set %s", a.settings.RegistryPath, config.EnvRegistry)
			}
			for _, m := range cat.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d files)\n", m.Name, m.Dir, len(m.Files))
			}
			return nil
		},
	}
}
