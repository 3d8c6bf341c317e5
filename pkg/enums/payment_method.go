package enums

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

var validPaymentMethods = []PaymentMethod{PaymentMethodCard, PaymentMethodCash}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return contains(validPaymentMethods, p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(validPaymentMethods, "payment method", value)
}
