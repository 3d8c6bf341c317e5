package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/payloads"
)

type stubOrders struct {
	order *models.Order
}

func (s stubOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *s.order
	return &copied, nil
}

type stubSettings struct {
	settings models.RestaurantSettings
}

func (s stubSettings) Current(context.Context) (models.RestaurantSettings, error) {
	return s.settings, nil
}

type recordingSender struct {
	sent []Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, email Email) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, email)
	return nil
}

func strPtr(v string) *string { return &v }

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000001"),
		OrderNumber:   "ORD-20260301-ABC123",
		Status:        enums.OrderStatusConfirmed,
		OrderType:     enums.OrderTypeDelivery,
		CustomerEmail: strPtr("diner@example.com"),
		Subtotal:      decimal.RequireFromString("20.00"),
		DeliveryFee:   decimal.RequireFromString("2.50"),
		Total:         decimal.RequireFromString("22.50"),
		Items: []models.OrderItem{
			{ProductName: "Margherita <Large>", Quantity: 2, Subtotal: decimal.RequireFromString("20.00")},
		},
	}
}

func newTestService(t *testing.T, order *models.Order, settings models.RestaurantSettings, sender Sender) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Orders:   stubOrders{order: order},
		Settings: stubSettings{settings: settings},
		Sender:   sender,
		Sendgrid: config.SendgridConfig{DefaultFrom: "orders@example.com", FromName: "Orders"},
	})
	require.NoError(t, err)
	return svc
}

func TestConfirmationEmailOnCreate(t *testing.T) {
	order := sampleOrder()
	sender := &recordingSender{}
	svc := newTestService(t, order, models.RestaurantSettings{
		RestaurantName:            "Luigi's",
		EmailNotificationsEnabled: true,
		NotificationEmail:         strPtr("kitchen@luigis.example"),
	}, sender)

	outcome, err := svc.HandleOrderEvent(context.Background(), enums.EventOrderCreated, payloads.OrderEvent{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	require.Len(t, sender.sent, 1)

	email := sender.sent[0]
	assert.Equal(t, "Order Confirmation - #1a2b3c4d", email.Subject)
	assert.Equal(t, "kitchen@luigis.example", email.FromAddress)
	assert.Equal(t, "Luigi's", email.FromName)
	assert.Equal(t, "diner@example.com", email.To)
	assert.Contains(t, email.Text, "Total: £22.50")
	assert.Contains(t, email.HTML, "Margherita &lt;Large&gt;")
}

func TestStatusEmailUsesStatusMessage(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusOutForDelivery
	sender := &recordingSender{}
	svc := newTestService(t, order, models.RestaurantSettings{EmailNotificationsEnabled: true}, sender)

	outcome, err := svc.HandleOrderEvent(context.Background(), enums.EventOrderStatusUpdated, payloads.OrderEvent{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Order Status Update - #1a2b3c4d", sender.sent[0].Subject)
	assert.Equal(t, "orders@example.com", sender.sent[0].FromAddress)
	assert.Equal(t, "Orders", sender.sent[0].FromName)
	assert.Contains(t, sender.sent[0].Text, "Your order is out for delivery.")
}

func TestEmailSkippedWhenDisabledOrNoRecipient(t *testing.T) {
	order := sampleOrder()
	sender := &recordingSender{}
	svc := newTestService(t, order, models.RestaurantSettings{EmailNotificationsEnabled: false}, sender)
	outcome, err := svc.HandleOrderEvent(context.Background(), enums.EventOrderCreated, payloads.OrderEvent{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisabled, outcome)

	order.CustomerEmail = nil
	svc = newTestService(t, order, models.RestaurantSettings{EmailNotificationsEnabled: true}, sender)
	outcome, err = svc.HandleOrderEvent(context.Background(), enums.EventOrderCreated, payloads.OrderEvent{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoEmail, outcome)

	outcome, err = svc.HandleOrderEvent(context.Background(), enums.EventOrderPaid, payloads.OrderEvent{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, sender.sent)
}

func TestEventEmailFallsBackWhenOrderHasNone(t *testing.T) {
	order := sampleOrder()
	order.CustomerEmail = nil
	sender := &recordingSender{}
	svc := newTestService(t, order, models.RestaurantSettings{EmailNotificationsEnabled: true}, sender)

	_, err := svc.HandleOrderEvent(context.Background(), enums.EventOrderCancelled, payloads.OrderEvent{
		OrderID:       order.ID,
		CustomerEmail: strPtr(" late@example.com "),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "late@example.com", sender.sent[0].To)
}

func TestStatusMessageDefault(t *testing.T) {
	assert.Equal(t, "Your order is ready for pickup!", StatusMessage(enums.OrderStatusReady))
	assert.Equal(t, "Your order status has been updated.", StatusMessage(enums.OrderStatus("weird")))
}
