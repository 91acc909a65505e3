package cmd

import (
	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every configured channel into the raw data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			a, cleanup, err := e.newApp(appOptions{})
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := a.Scrape(cmd.Context())
			if err != nil {
				return err
			}
			renderScrape(cmd.OutOrStdout(), results)
			return nil
		},
	}
}
