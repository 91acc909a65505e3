package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPersistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "persist",
		Short: "Save the latest cleaned snapshot to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			a, cleanup, err := e.newApp(appOptions{database: true})
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := a.Persist(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d rows to %s\n", n, e.cfg.Database.Table)
			return nil
		},
	}
}
