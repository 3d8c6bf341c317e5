package enums

// OrderType is the fulfillment channel.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

var validOrderTypes = []OrderType{OrderTypeDelivery, OrderTypePickup}

func (o OrderType) String() string { return string(o) }

func (o OrderType) IsValid() bool { return contains(validOrderTypes, o) }

func ParseOrderType(value string) (OrderType, error) {
	return parse(validOrderTypes, "order type", value)
}
