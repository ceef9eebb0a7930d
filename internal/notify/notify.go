// Package notify delivers interview invitations by email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("smtp configuration is incomplete")

// mailSender is satisfied by *mail.Client.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPOptions struct {
	Server   string
	Port     int
	Username string
	Password string
	Sender   string
}

// SMTP sends plain-text mail over STARTTLS with PLAIN auth.
type SMTP struct {
	client mailSender
	sender string
	logger *zap.Logger
}

func NewSMTP(opts SMTPOptions, logger *zap.Logger) (*SMTP, error) {
	if strings.TrimSpace(opts.Server) == "" || opts.Port == 0 || opts.Username == "" || opts.Password == "" || opts.Sender == "" {
		return nil, ErrNotConfigured
	}

	client, err := mail.NewClient(opts.Server,
		mail.WithPort(opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(opts.Username),
		mail.WithPassword(opts.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	return &SMTP{client: client, sender: opts.Sender, logger: logger}, nil
}

func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.sender); err != nil {
		return fmt.Errorf("setting sender %q: %w", s.sender, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// DryRun prints the message instead of sending it and always succeeds.
type DryRun struct {
	out    io.Writer
	sender string
	logger *zap.Logger
}

func NewDryRun(out io.Writer, sender string, logger *zap.Logger) *DryRun {
	return &DryRun{out: out, sender: sender, logger: logger}
}

func (d *DryRun) Send(_ context.Context, to, subject, body string) error {
	d.logger.Info("email sending is disabled, printing the message instead", zap.String("to", to))

	if d.out != nil {
		fmt.Fprintf(d.out, "--- MOCK EMAIL ---\nTo: %s\nFrom: %s\nSubject: %s\nBody:\n%s\n--- END MOCK EMAIL ---\n",
			to, d.sender, subject, body)
	}
	return nil
}
