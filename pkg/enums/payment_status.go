package enums

// PaymentStatus tracks the money side of an order.
//
// pending -> paid | failed, failed -> paid (new attempt), paid -> refunded.
// paid never moves back to pending or failed.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return contains(validPaymentStatuses, p) }

// CanTransitionTo reports whether p may move to next.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return contains(paymentTransitions[p], next)
}

// SourcesFor lists the statuses from which next is reachable.
func SourcesFor(next PaymentStatus) []PaymentStatus {
	out := []PaymentStatus{}
	for _, from := range validPaymentStatuses {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(validPaymentStatuses, "payment status", value)
}
