// Package report renders run summaries as HTML and plain-text reports.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ibeckermayer/tgharvest/internal/types"
)

// DefaultMaxRejected caps how many rejected rows a report lists.
const DefaultMaxRejected = 20

// ChannelOutcome is the scrape result for one channel.
type ChannelOutcome struct {
	Name     string        `json:"name"`
	Messages int           `json:"messages"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// DateError describes a row dropped for an unparseable date.
type DateError struct {
	MessageID int64  `json:"message_id"`
	Channel   string `json:"channel"`
	Error     string `json:"error"`
}

// Summary captures what one pipeline run did.
type Summary struct {
	RunID        string           `json:"run_id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Channels     []ChannelOutcome `json:"channels,omitempty"`
	InputRows    int              `json:"input_rows"`
	Valid        int              `json:"valid"`
	Invalid      int              `json:"invalid"`
	Duplicates   int              `json:"duplicates"`
	DateErrors   []DateError      `json:"date_errors,omitempty"`
	Rejected     types.Table      `json:"rejected,omitempty"`
	Persisted    int64            `json:"persisted"`
	Table        string           `json:"table,omitempty"`
	CleanedPath  string           `json:"cleaned_path,omitempty"`
	RejectedPath string           `json:"rejected_path,omitempty"`
}

// FailedChannels returns the number of channels whose scrape failed.
func (s *Summary) FailedChannels() int {
	n := 0
	for _, ch := range s.Channels {
		if ch.Error != "" {
			n++
		}
	}
	return n
}

// Builder creates reports from run summaries
type Builder struct {
	maxRejected int
	template    *template.Template
}

// New creates a new report builder
func New(maxRejected int) (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"deref": types.Deref,
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	if maxRejected < 0 {
		maxRejected = 0
	}

	return &Builder{
		maxRejected: maxRejected,
		template:    tmpl,
	}, nil
}

// Report is a rendered run report ready for saving or sending
type Report struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	RunID     string
	CreatedAt time.Time
}

// reportData is the template data structure
type reportData struct {
	Title      string
	Date       string
	Summary    *Summary
	Failed     int
	Rejected   types.Table
	Truncated  int
	Persisted  bool
	DurationMS int64
}

// Build renders a report for s
func (b *Builder) Build(s *Summary) (*Report, error) {
	if s == nil {
		return nil, fmt.Errorf("no summary to report")
	}

	rejected := s.Rejected
	truncated := 0
	if len(rejected) > b.maxRejected {
		truncated = len(rejected) - b.maxRejected
		rejected = rejected[:b.maxRejected]
	}

	data := reportData{
		Title:     "Telegram harvest report",
		Date:      s.StartedAt.UTC().Format("Monday, January 2 2006 15:04 MST"),
		Summary:   s,
		Failed:    s.FailedChannels(),
		Rejected:  rejected,
		Truncated: truncated,
		Persisted: s.Table != "",
	}
	if !s.FinishedAt.IsZero() {
		data.DurationMS = s.FinishedAt.Sub(s.StartedAt).Milliseconds()
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	subject := fmt.Sprintf("Telegram harvest - %d valid, %d rejected, %s",
		s.Valid, s.Invalid+len(s.DateErrors), s.StartedAt.UTC().Format("Jan 2 15:04"))
	if data.Failed > 0 {
		subject += fmt.Sprintf(" (%d channel failures)", data.Failed)
	}

	return &Report{
		Subject:   subject,
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		RunID:     s.RunID,
		CreatedAt: time.Now(),
	}, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func buildPlainText(data reportData) string {
	s := data.Summary

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%s\nRun %s\n\n", data.Title, data.Date, s.RunID)

	if len(s.Channels) > 0 {
		buf.WriteString("Channels:\n")
		for _, ch := range s.Channels {
			if ch.Error != "" {
				fmt.Fprintf(&buf, "  %s: FAILED (%s)\n", ch.Name, ch.Error)
				continue
			}
			fmt.Fprintf(&buf, "  %s: %d messages\n", ch.Name, ch.Messages)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "Input rows: %d\n", s.InputRows)
	fmt.Fprintf(&buf, "Valid: %d\n", s.Valid)
	fmt.Fprintf(&buf, "Invalid: %d\n", s.Invalid)
	fmt.Fprintf(&buf, "Duplicates removed: %d\n", s.Duplicates)
	fmt.Fprintf(&buf, "Date errors: %d\n", len(s.DateErrors))
	if data.Persisted {
		fmt.Fprintf(&buf, "Persisted %d rows to %s\n", s.Persisted, s.Table)
	}

	if len(s.DateErrors) > 0 {
		buf.WriteString("\nDropped for bad dates:\n")
		for _, e := range s.DateErrors {
			fmt.Fprintf(&buf, "  %s/%d: %s\n", e.Channel, e.MessageID, e.Error)
		}
	}

	if len(data.Rejected) > 0 {
		buf.WriteString("\nRejected rows:\n")
		for _, r := range data.Rejected {
			fmt.Fprintf(&buf, "  %s/%d: %s\n", types.Deref(r.Channel), r.ID, truncate(types.Deref(r.Text), 80))
		}
		if data.Truncated > 0 {
			fmt.Fprintf(&buf, "  ... and %d more\n", data.Truncated)
		}
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 680px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #229ed9; margin-bottom: 5px; }
        h2 { font-size: 16px; color: #333; margin-top: 24px; }
        .date { color: #666; margin-bottom: 20px; }
        table { border-collapse: collapse; width: 100%; font-size: 14px; }
        td, th { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; }
        .failed { color: #c0392b; }
        .num { text-align: right; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}} · run {{.Summary.RunID}}</div>

        {{if .Summary.Channels}}
        <h2>Channels</h2>
        <table>
            {{range .Summary.Channels}}
            <tr>
                <td>{{.Name}}</td>
                {{if .Error}}<td class="failed">failed: {{.Error}}</td>{{else}}<td class="num">{{.Messages}} messages</td>{{end}}
            </tr>
            {{end}}
        </table>
        {{end}}

        <h2>Cleaning</h2>
        <table>
            <tr><td>Input rows</td><td class="num">{{.Summary.InputRows}}</td></tr>
            <tr><td>Valid</td><td class="num">{{.Summary.Valid}}</td></tr>
            <tr><td>Invalid</td><td class="num">{{.Summary.Invalid}}</td></tr>
            <tr><td>Duplicates removed</td><td class="num">{{.Summary.Duplicates}}</td></tr>
            <tr><td>Date errors</td><td class="num">{{len .Summary.DateErrors}}</td></tr>
            {{if .Persisted}}<tr><td>Persisted to {{.Summary.Table}}</td><td class="num">{{.Summary.Persisted}}</td></tr>{{end}}
        </table>

        {{if .Summary.DateErrors}}
        <h2>Dropped for bad dates</h2>
        <table>
            {{range .Summary.DateErrors}}
            <tr><td>{{.Channel}}/{{.MessageID}}</td><td>{{.Error}}</td></tr>
            {{end}}
        </table>
        {{end}}

        {{if .Rejected}}
        <h2>Rejected rows</h2>
        <table>
            {{range .Rejected}}
            <tr><td>{{deref .Channel}}/{{.ID}}</td><td>{{deref .Text}}</td></tr>
            {{end}}
        </table>
        {{if .Truncated}}<p>... and {{.Truncated}} more</p>{{end}}
        {{end}}

        <div class="footer">
            {{if .DurationMS}}Took {{.DurationMS}} ms · {{end}}Generated by tgharvest
        </div>
    </div>
</body>
</html>`
