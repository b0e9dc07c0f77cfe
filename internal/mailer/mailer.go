// Package mailer delivers verification emails. Delivery is a capability the
// auth workflow depends on through the Mailer interface; the concrete driver
// (log, SMTP, or a RabbitMQ queue drained by a Worker) is chosen by config.
package mailer

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends the message that proves control of an email address.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// VerificationMessage is the payload carried by the queue driver.
type VerificationMessage struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// VerificationURL builds the client link that embeds token.
func VerificationURL(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

// LogMailer writes the verification link to the log instead of sending mail.
// It is the development default.
type LogMailer struct {
	logger    *zap.Logger
	clientURL string
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.Logger, clientURL string) *LogMailer {
	return &LogMailer{logger: logger, clientURL: clientURL}
}

func (m *LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.logger.Info("verification email",
		zap.String("to", email),
		zap.String("url", VerificationURL(m.clientURL, token)),
	)
	return nil
}
