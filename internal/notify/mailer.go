// Package notify sends transactional email about registrations. Delivery is
// best effort: messages go through an in-process queue, failures are logged
// and counted, and nothing is retried.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/config"
)

// Message is one outbound email.
type Message struct {
	Kind    string // template name, used for logs and metrics
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer builds the mailer selected by cfg.Driver.
func NewMailer(cfg config.MailConfig, log *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "smtp":
		m, err := NewSMTPMailer(cfg.From, cfg.SMTP)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "log":
		return NewLogMailer(log), nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email (log driver)",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)))
	return nil
}

// SMTPMailer sends HTML mail through an SMTP relay. STARTTLS is used when the
// relay offers it.
type SMTPMailer struct {
	from   string
	client *mail.Client
}

// NewSMTPMailer constructs an SMTPMailer. Credentials are optional; PLAIN
// auth is used when a username is set.
func NewSMTPMailer(from string, cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if cfg.Port != 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", cfg.Host, err)
	}
	return &SMTPMailer{from: from, client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := newMailMsg(m.from, msg, time.Now())
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send smtp to %s: %w", msg.To, err)
	}
	return nil
}

// newMailMsg renders msg as an HTML email dated now.
func newMailMsg(from string, msg Message, now time.Time) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(now)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return out, nil
}
