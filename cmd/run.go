package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scrape, clean and persist in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			a, cleanup, err := e.newApp(appOptions{database: true, email: true})
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}
