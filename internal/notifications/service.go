package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/payloads"
)

// Outcomes reported by HandleOrderEvent.
const (
	OutcomeSent     = "sent"
	OutcomeDisabled = "disabled"
	OutcomeNoEmail  = "no_recipient"
	OutcomeIgnored  = "ignored"
)

type orderReader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type settingsSource interface {
	Current(ctx context.Context) (models.RestaurantSettings, error)
}

// Service turns order events into customer emails.
type Service interface {
	HandleOrderEvent(ctx context.Context, eventType enums.OutboxEventType, event payloads.OrderEvent) (string, error)
}

type ServiceParams struct {
	Orders   orderReader
	Settings settingsSource
	Sender   Sender
	Sendgrid config.SendgridConfig
	Logger   *logger.Logger
}

type service struct {
	orders   orderReader
	settings settingsSource
	sender   Sender
	from     config.SendgridConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings source required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		orders:   params.Orders,
		settings: params.Settings,
		sender:   params.Sender,
		from:     params.Sendgrid,
		logg:     logg,
	}, nil
}

func (s *service) HandleOrderEvent(ctx context.Context, eventType enums.OutboxEventType, event payloads.OrderEvent) (string, error) {
	var build func(models.Order, string) (string, string, string)
	switch eventType {
	case enums.EventOrderCreated:
		build = confirmationEmail
	case enums.EventOrderStatusUpdated, enums.EventOrderCancelled:
		build = statusEmail
	default:
		return OutcomeIgnored, nil
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return "", err
	}
	if !settings.EmailNotificationsEnabled {
		return OutcomeDisabled, nil
	}

	order, err := s.orders.FindByID(ctx, event.OrderID)
	if err != nil {
		return "", err
	}
	to := recipient(order, event)
	if to == "" {
		return OutcomeNoEmail, nil
	}

	subject, text, body := build(*order, restaurantName(settings, s.from))
	email := Email{
		FromAddress: s.fromAddress(settings),
		FromName:    restaurantName(settings, s.from),
		To:          to,
		Subject:     subject,
		Text:        text,
		HTML:        body,
	}
	if err := s.sender.Send(ctx, email); err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order email sent: "+subject)
	return OutcomeSent, nil
}

func (s *service) fromAddress(settings models.RestaurantSettings) string {
	if settings.NotificationEmail != nil {
		if addr := strings.TrimSpace(*settings.NotificationEmail); addr != "" {
			return addr
		}
	}
	return s.from.DefaultFrom
}

func restaurantName(settings models.RestaurantSettings, cfg config.SendgridConfig) string {
	if name := strings.TrimSpace(settings.RestaurantName); name != "" {
		return name
	}
	return cfg.FromName
}

func recipient(order *models.Order, event payloads.OrderEvent) string {
	if order.CustomerEmail != nil && strings.TrimSpace(*order.CustomerEmail) != "" {
		return strings.TrimSpace(*order.CustomerEmail)
	}
	if event.CustomerEmail != nil {
		return strings.TrimSpace(*event.CustomerEmail)
	}
	return ""
}
