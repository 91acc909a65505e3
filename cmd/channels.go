package cmd

import (
	"github.com/spf13/cobra"
)

func newChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			renderChannels(cmd.OutOrStdout(), e.cfg.Channels)
			return nil
		},
	}
}
