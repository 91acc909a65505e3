package cmd

import (
	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	var noPersist bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Clean the raw data, snapshot it and save it to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			a, cleanup, err := e.newApp(appOptions{database: !noPersist, email: true})
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := a.Process(cmd.Context(), !noPersist)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "only write cleaned snapshots, skip the database")
	return cmd
}
