// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package email delivers verification codes and notifications over SMTP.
// Delivery is a collaborator of the auth service: a failed send surfaces as
// ErrDeliveryFailed, but any code issued beforehand stays valid.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"codeberg.org/fkoehler/go-account-service/internal/config"
	"codeberg.org/fkoehler/go-account-service/internal/i18n"
)

// ErrDeliveryFailed is returned when a message could not be handed to the
// SMTP server.
var ErrDeliveryFailed = errors.New("email delivery failed")

// Service sends localized account emails via SMTP.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates an email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &Service{cfg: cfg}, nil
}

// SendVerificationCode mails a signup confirmation code.
func (s *Service) SendVerificationCode(ctx context.Context, to, username, code string) error {
	return s.sendCode(ctx, to, username, code, "email_verification_subject", "email_verification_body")
}

// SendPasswordResetCode mails a password reset code.
func (s *Service) SendPasswordResetCode(ctx context.Context, to, username, code string) error {
	return s.sendCode(ctx, to, username, code, "email_password_reset_subject", "email_password_reset_body")
}

// SendEmailChangeCode mails a confirmation code to the address a user wants
// to switch to.
func (s *Service) SendEmailChangeCode(ctx context.Context, to, username, code string) error {
	return s.sendCode(ctx, to, username, code, "email_change_subject", "email_change_body")
}

func (s *Service) sendCode(ctx context.Context, to, username, code, subjectKey, bodyKey string) error {
	subject := i18n.T(ctx, subjectKey)
	body := i18n.TData(ctx, bodyKey, map[string]any{
		"Username": username,
		"Code":     code,
	})
	return s.send(to, subject, body)
}

// send sends a plaintext email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS on 465, STARTTLS everywhere else
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: creating mail client: %v", ErrDeliveryFailed, err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

// LogMailer writes codes to the log instead of sending mail. Used when no
// SMTP host is configured, typically in development.
type LogMailer struct{}

// SendVerificationCode logs the code.
func (LogMailer) SendVerificationCode(ctx context.Context, to, username, code string) error {
	slog.Info("mail_skipped", "kind", "verification", "to", to, "code", code)
	return nil
}

// SendPasswordResetCode logs the code.
func (LogMailer) SendPasswordResetCode(ctx context.Context, to, username, code string) error {
	slog.Info("mail_skipped", "kind", "password_reset", "to", to, "code", code)
	return nil
}

// SendEmailChangeCode logs the code.
func (LogMailer) SendEmailChangeCode(ctx context.Context, to, username, code string) error {
	slog.Info("mail_skipped", "kind", "email_change", "to", to, "code", code)
	return nil
}
