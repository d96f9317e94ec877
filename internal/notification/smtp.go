package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"signup/pkg/email"
)

// SMTPConfig carries the connection settings for outgoing mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// SMTPGateway sends registration mail through an SMTP relay using go-mail.
type SMTPGateway struct {
	cfg SMTPConfig
}

func NewSMTPGateway(cfg SMTPConfig) (*SMTPGateway, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &SMTPGateway{cfg: cfg}, nil
}

func (g *SMTPGateway) SendWelcome(ctx context.Context, addr, username string) error {
	name := email.DeriveNameFromEmail(addr)
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome aboard! Your account %q is ready.\n\nPlease verify your email address to unlock your account.\n",
		name, username,
	)
	return g.send(ctx, addr, "Welcome!", body)
}

func (g *SMTPGateway) SendVerification(ctx context.Context, addr, username, verificationLink string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nThe link expires after a short while; you can request a new one at any time.\n",
		username, verificationLink,
	)
	return g.send(ctx, addr, "Verify your email address", body)
}

func (g *SMTPGateway) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if g.cfg.FromName != "" {
		if err := msg.FromFormat(g.cfg.FromName, g.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(g.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(g.cfg.Port),
	}
	if g.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if g.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if g.cfg.Username != "" && g.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(g.cfg.Username),
			mail.WithPassword(g.cfg.Password),
		)
	}

	client, err := mail.NewClient(g.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
