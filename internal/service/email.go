package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"fleet-erp-backend/internal/config"
	"fleet-erp-backend/internal/logger"
)

const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

// NewEmailSender picks the backend named by notification.provider
func NewEmailSender(cfg *config.Config) (EmailSender, error) {
	switch cfg.Notification.Provider {
	case ProviderSMTP:
		return NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From), nil
	case ProviderSendGrid:
		if cfg.SendGrid.APIKey == "" {
			return nil, fmt.Errorf("sendgrid provider selected but sendgrid.api_key is empty")
		}
		return NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName), nil
	case ProviderLog, "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Notification.Provider)
	}
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) EmailSender {
	return &smtpSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpSender) Name() string { return ProviderSMTP }

func (s *smtpSender) Send(ctx context.Context, msg EmailMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

type sendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) EmailSender {
	return &sendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridSender) Name() string { return ProviderSendGrid }

func (s *sendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// logSender only logs; used for local runs
type logSender struct{}

func NewLogSender() EmailSender { return logSender{} }

func (logSender) Name() string { return ProviderLog }

func (logSender) Send(ctx context.Context, msg EmailMessage) error {
	logger.InfoContext(ctx, "Email (log provider)", "to", MaskRecipient(msg.To), "subject", msg.Subject, "bytes", len(msg.Body))
	return nil
}
