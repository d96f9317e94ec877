// Package notification delivers registration emails. The core only sees the
// Gateway interface; the SMTP implementation and the dev log-only fallback
// live here.
package notification

import (
	"context"
	"log/slog"
	"strings"

	"signup/pkg/email"
)

// Gateway delivers registration mail. Failures are the caller's concern to
// log; they must never roll back the operation that triggered the send.
type Gateway interface {
	SendWelcome(ctx context.Context, addr, username string) error
	SendVerification(ctx context.Context, addr, username, verificationLink string) error
}

// Links builds caller-facing URLs embedded in outgoing mail.
type Links struct {
	baseURL string
}

func NewLinks(baseURL string) Links {
	return Links{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Verification returns the link that redeems the given token.
func (l Links) Verification(token string) string {
	return l.baseURL + "/api/v1/verify-email?token=" + token
}

// LogGateway writes mail to the log instead of sending it. Default in dev and
// test environments, where no SMTP host is configured.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

func (g *LogGateway) SendWelcome(ctx context.Context, addr, username string) error {
	g.logger.InfoContext(ctx, "welcome email (log only)",
		"to", addr,
		"greeting", email.DeriveNameFromEmail(addr),
		"username", username,
	)
	return nil
}

func (g *LogGateway) SendVerification(ctx context.Context, addr, username, verificationLink string) error {
	g.logger.InfoContext(ctx, "verification email (log only)",
		"to", addr,
		"username", username,
		"link", verificationLink,
	)
	return nil
}

// VerificationMailer adapts a Gateway to the token-level delivery hook used
// by the registration service: it turns the raw token into a redeemable link.
type VerificationMailer struct {
	gateway Gateway
	links   Links
}

func NewVerificationMailer(gateway Gateway, links Links) *VerificationMailer {
	return &VerificationMailer{gateway: gateway, links: links}
}

func (m *VerificationMailer) SendVerification(ctx context.Context, addr, username, token string) error {
	return m.gateway.SendVerification(ctx, addr, username, m.links.Verification(token))
}
