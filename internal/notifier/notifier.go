// Package notifier delivers run reports by email.
package notifier

import (
	"errors"
	"fmt"

	"github.com/ibeckermayer/tgharvest/internal/config"
	"github.com/ibeckermayer/tgharvest/internal/notifier/providers"
	"github.com/ibeckermayer/tgharvest/internal/report"
)

// ErrEmailDisabled is returned by NewFromConfig when email is turned off.
var ErrEmailDisabled = errors.New("email notifications disabled")

// Notifier handles sending report notifications
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier that mails reports to toAddr
func New(sender Sender, toAddr string) *Notifier {
	return &Notifier{sender: sender, to: toAddr}
}

// NewFromConfig creates an SMTP notifier from configuration
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, ErrEmailDisabled
	}
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp_host is required when email is enabled")
	}

	sender := providers.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
		cfg.FromAddr,
	)

	return New(sender, cfg.ToAddr), nil
}

// SendReport emails a run report
func (n *Notifier) SendReport(r *report.Report) error {
	if err := n.sender.Send(n.to, r.Subject, r.HTMLBody, r.PlainBody); err != nil {
		return fmt.Errorf("send report %s: %w", r.RunID, err)
	}
	return nil
}
