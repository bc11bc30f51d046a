package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPullCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "pull NAME",
		Short:   "Download and verify a registry model",
		Example: "  ovid pull animatediff-v3\n  ovid pull animatediff-v3 --force",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalog()
			if err != nil {
				return err
			}
			name := args[0]
			target, err := a.fetcher(cat).Pull(cmd.Context(), name, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled %s into %s\n", name, target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-download files even when their checksum already matches")
	return cmd
}
