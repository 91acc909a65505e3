package cmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	browseropts "github.com/ibeckermayer/tgharvest/internal/browser"
)

const botTestURL = "https://bot.sannysoft.com"

func newBotTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "bot-test",
		Short:  "Open a fingerprint audit page with the scraper's browser options",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), browseropts.Options(false)...)
			defer cancel()

			ctx, cancel := chromedp.NewContext(allocCtx)
			defer cancel()

			if err := chromedp.Run(ctx,
				chromedp.Navigate(botTestURL),
				chromedp.WaitVisible("body", chromedp.ByQuery),
			); err != nil {
				return fmt.Errorf("navigate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			return nil
		},
	}
}
