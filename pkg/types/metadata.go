package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
)

// Metadata keys written to and read back from payment sessions.
const (
	MetaUserID          = "user_id"
	MetaOrderID         = "order_id"
	MetaOrderType       = "order_type"
	MetaDeliveryAddress = "delivery_address"
	MetaPhone           = "phone"
	MetaNotes           = "notes"
)

// maxMetadataValue is the provider's per-value limit.
const maxMetadataValue = 500

var schemaValidator = validator.New(validator.WithRequiredStructEnabled())

// OrderMetadata is the order intent carried through a hosted payment session.
type OrderMetadata struct {
	UserID          uuid.UUID
	OrderID         *uuid.UUID
	OrderType       enums.OrderType  `validate:"required,oneof=delivery pickup"`
	DeliveryAddress *DeliveryAddress `validate:"-"`
	Phone           string           `validate:"max=32"`
	Notes           string           `validate:"max=500"`
}

// Validate checks the closed schema.
func (m OrderMetadata) Validate() error {
	if m.UserID == uuid.Nil {
		return fmt.Errorf("metadata: user_id is required")
	}
	if err := schemaValidator.Struct(m); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	return ValidateDelivery(m.OrderType, m.DeliveryAddress)
}

// ValidateDelivery requires a complete address for delivery orders.
func ValidateDelivery(orderType enums.OrderType, addr *DeliveryAddress) error {
	if addr == nil {
		if orderType == enums.OrderTypeDelivery {
			return fmt.Errorf("delivery_address is required for delivery orders")
		}
		return nil
	}
	if err := schemaValidator.Struct(*addr); err != nil {
		return fmt.Errorf("delivery_address: %w", err)
	}
	return nil
}

// ToMap flattens the metadata into provider key/value pairs.
func (m OrderMetadata) ToMap() (map[string]string, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	out := map[string]string{
		MetaUserID:    m.UserID.String(),
		MetaOrderType: string(m.OrderType),
		MetaPhone:     m.Phone,
		MetaNotes:     m.Notes,
	}
	if m.OrderID != nil {
		out[MetaOrderID] = m.OrderID.String()
	}
	if m.DeliveryAddress != nil {
		raw, err := json.Marshal(m.DeliveryAddress)
		if err != nil {
			return nil, fmt.Errorf("metadata: encode address: %w", err)
		}
		out[MetaDeliveryAddress] = string(raw)
	}
	for k, v := range out {
		if len(v) > maxMetadataValue {
			return nil, fmt.Errorf("metadata: %s exceeds %d characters", k, maxMetadataValue)
		}
	}
	return out, nil
}

// ParseOrderMetadata rebuilds and validates metadata echoed back by the provider.
func ParseOrderMetadata(raw map[string]string) (OrderMetadata, error) {
	var m OrderMetadata

	userID, err := uuid.Parse(strings.TrimSpace(raw[MetaUserID]))
	if err != nil {
		return m, fmt.Errorf("metadata: invalid user_id: %w", err)
	}
	m.UserID = userID

	if v := strings.TrimSpace(raw[MetaOrderID]); v != "" {
		orderID, err := uuid.Parse(v)
		if err != nil {
			return m, fmt.Errorf("metadata: invalid order_id: %w", err)
		}
		m.OrderID = &orderID
	}

	orderType, err := enums.ParseOrderType(strings.TrimSpace(raw[MetaOrderType]))
	if err != nil {
		return m, fmt.Errorf("metadata: %w", err)
	}
	m.OrderType = orderType

	if v := strings.TrimSpace(raw[MetaDeliveryAddress]); v != "" {
		var addr DeliveryAddress
		if err := json.Unmarshal([]byte(v), &addr); err != nil {
			return m, fmt.Errorf("metadata: invalid delivery_address: %w", err)
		}
		m.DeliveryAddress = &addr
	}
	m.Phone = raw[MetaPhone]
	m.Notes = raw[MetaNotes]

	return m, m.Validate()
}
