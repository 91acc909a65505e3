package cmd

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ibeckermayer/tgharvest/internal/config"
	"github.com/ibeckermayer/tgharvest/internal/report"
	"github.com/ibeckermayer/tgharvest/internal/scraper"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderChannels prints the configured channels with their preview usernames.
func renderChannels(w io.Writer, channels []config.ChannelConfig) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "URL", "Username"})
	for _, ch := range channels {
		username, err := scraper.ChannelUsername(ch.URL)
		if err != nil {
			username = "invalid"
		}
		t.AppendRow(table.Row{ch.Name, ch.URL, username})
	}
	t.Render()
}

// renderScrape prints one row per scraped channel.
func renderScrape(w io.Writer, results []scraper.ChannelResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Channel", "Messages", "Duration", "Error"})
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Channel.Name, len(r.Messages), r.Duration.Round(time.Millisecond), errText})
	}
	t.Render()
}

// renderSummary prints the counts of a processing run.
func renderSummary(w io.Writer, s *report.Summary) {
	t := newTable(w)
	t.SetTitle("Run " + s.RunID)
	t.AppendRows([]table.Row{
		{"Input rows", s.InputRows},
		{"Valid", s.Valid},
		{"Invalid", s.Invalid},
		{"Duplicates removed", s.Duplicates},
		{"Date errors", len(s.DateErrors)},
	})
	if s.Table != "" {
		t.AppendRow(table.Row{"Persisted to " + s.Table, s.Persisted})
	}
	if s.CleanedPath != "" {
		t.AppendRow(table.Row{"Cleaned snapshot", s.CleanedPath})
	}
	t.Render()
}
