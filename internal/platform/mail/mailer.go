// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail provides the outbound email boundary for account lifecycle flows.

Delivery is fire-and-forget from the domain's perspective: services hand the
mailer a recipient and a token, log any failure, and never fold delivery
status back into account state.
*/
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer defines the contract for sending account lifecycle messages.
type Mailer interface {
	// SendConfirmation delivers an email-confirmation link for the token.
	SendConfirmation(ctx context.Context, to, token string) error

	// SendPasswordReset delivers a password-reset link for the token.
	SendPasswordReset(ctx context.Context, to, token string) error
}

// # SMTP Implementation

// Config holds the SMTP connection and sender settings.
type Config struct {
	Server        string
	Port          int
	Username      string
	Password      string
	Sender        string
	SubjectPrefix string
}

// SMTPMailer sends messages through a single SMTP relay using PLAIN auth
// over STARTTLS.
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

// NewSMTPMailer constructs an [SMTPMailer].
func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendConfirmation implements [Mailer].
func (mailer *SMTPMailer) SendConfirmation(ctx context.Context, to, token string) error {
	subject := "Confirm your account"
	body := fmt.Sprintf(
		"Welcome to Plumeria!\r\n\r\n"+
			"To confirm your account, open the link below:\r\n\r\n"+
			"https://plumeria.app/confirm/%s\r\n\r\n"+
			"The link expires shortly; request a new one if it no longer works.\r\n",
		token,
	)
	return mailer.send(ctx, to, subject, body)
}

// SendPasswordReset implements [Mailer].
func (mailer *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"A password reset was requested for your Plumeria account.\r\n\r\n"+
			"To choose a new password, open the link below:\r\n\r\n"+
			"https://plumeria.app/reset/%s\r\n\r\n"+
			"If you did not request this, you can safely ignore this message.\r\n",
		token,
	)
	return mailer.send(ctx, to, subject, body)
}

// send assembles the RFC 5322 message and hands it to the relay.
func (mailer *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", mailer.cfg.Server, mailer.cfg.Port)

	var message strings.Builder
	message.WriteString("From: " + mailer.cfg.Sender + "\r\n")
	message.WriteString("To: " + to + "\r\n")
	message.WriteString("Subject: " + mailer.cfg.SubjectPrefix + " " + subject + "\r\n")
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	var auth smtp.Auth
	if mailer.cfg.Username != "" {
		auth = smtp.PlainAuth("", mailer.cfg.Username, mailer.cfg.Password, mailer.cfg.Server)
	}

	// smtp.SendMail negotiates STARTTLS when the relay advertises it.
	if err := smtp.SendMail(addr, auth, mailer.cfg.Sender, []string{to}, []byte(message.String())); err != nil {
		return fmt.Errorf("mail: send to %s failed: %w", to, err)
	}

	mailer.logger.Info("mail_sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)

	return nil
}

// # Suppressed Implementation

// LogMailer logs messages instead of delivering them. It backs the
// MAIL_SUPPRESS mode used in development and tests.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendConfirmation implements [Mailer].
func (mailer *LogMailer) SendConfirmation(ctx context.Context, to, token string) error {
	mailer.logger.InfoContext(ctx, "mail_suppressed",
		slog.String("kind", "confirmation"),
		slog.String("to", to),
		slog.String("token", token),
	)
	return nil
}

// SendPasswordReset implements [Mailer].
func (mailer *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	mailer.logger.InfoContext(ctx, "mail_suppressed",
		slog.String("kind", "password_reset"),
		slog.String("to", to),
		slog.String("token", token),
	)
	return nil
}
