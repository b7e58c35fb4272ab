package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-userauth/config"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("message has no recipient")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Dispatcher delivers a message or reports why it could not.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPDispatcher struct {
	cfg config.MailConfig
}

func NewSMTPDispatcher(cfg config.MailConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	m, err := d.build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(d.cfg.Host, d.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (d *SMTPDispatcher) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(d.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", d.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (d *SMTPDispatcher) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(d.cfg.Port)}
	if d.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(d.cfg.Timeout))
	}
	if d.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if d.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.cfg.Username),
			mail.WithPassword(d.cfg.Password),
		)
	}
	return opts
}

// LogDispatcher writes messages to the log instead of delivering them.
// Used when SMTP_DRIVER is "log".
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}

func NewDispatcher(cfg config.MailConfig) Dispatcher {
	if cfg.Driver == config.MailDriverLog {
		return LogDispatcher{}
	}
	return NewSMTPDispatcher(cfg)
}
