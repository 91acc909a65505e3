package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|data|report>",
		Short:     "Open the config file, data directory or latest report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "data", "report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}

			var path string
			switch args[0] {
			case "config":
				path = e.cfgPath
			case "data":
				path = filepath.Dir(e.cfg.Scraping.RawDir)
				if err := os.MkdirAll(path, 0755); err != nil {
					return err
				}
			case "report":
				a, cleanup, err := e.newApp(appOptions{})
				if err != nil {
					return err
				}
				defer cleanup()
				if path, err = a.LatestReport(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown target %q: want config, data or report", args[0])
			}

			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return browser.OpenFile(path)
		},
	}
}
