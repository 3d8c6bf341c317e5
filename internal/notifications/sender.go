package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/ordering-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
)

// Email is one outbound message.
type Email struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	Text        string
	HTML        string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type SendgridSender struct {
	client *sendgrid.Client
}

func NewSendgridSender(cfg config.SendgridConfig) (*SendgridSender, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	return &SendgridSender{client: sendgrid.NewSendClient(key)}, nil
}

func (s *SendgridSender) Send(ctx context.Context, email Email) error {
	from := mail.NewEmail(email.FromName, email.FromAddress)
	to := mail.NewEmail("", email.To)
	msg := mail.NewSingleEmail(from, email.Subject, to, email.Text, email.HTML)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp.StatusCode >= 300 {
		return pkgerrors.Newf(pkgerrors.CodeDependency, "email provider returned %d", resp.StatusCode)
	}
	return nil
}

// LogSender is used when no provider key is configured; it only records
// what would have been sent.
type LogSender struct {
	Sent func(Email)
}

func (s LogSender) Send(_ context.Context, email Email) error {
	if s.Sent != nil {
		s.Sent(email)
	}
	return nil
}
