package notifications

import (
	"fmt"
	"html"
	"strings"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
)

var statusMessages = map[enums.OrderStatus]string{
	enums.OrderStatusPending:        "Your order has been received and is being processed.",
	enums.OrderStatusConfirmed:      "Your order has been confirmed and is being prepared.",
	enums.OrderStatusPreparing:      "Your order is being prepared.",
	enums.OrderStatusReady:          "Your order is ready for pickup!",
	enums.OrderStatusOutForDelivery: "Your order is out for delivery.",
	enums.OrderStatusCompleted:      "Your order has been completed.",
	enums.OrderStatusCancelled:      "Your order has been cancelled.",
}

// StatusMessage is the customer-facing sentence for a status.
func StatusMessage(status enums.OrderStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Your order status has been updated."
}

// shortRef is the first eight characters of the order id.
func shortRef(order models.Order) string {
	id := order.ID.String()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func confirmationEmail(order models.Order, restaurant string) (subject, text, body string) {
	subject = fmt.Sprintf("Order Confirmation - #%s", shortRef(order))

	var lines strings.Builder
	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "%d x %s  £%s\n", item.Quantity, item.ProductName, item.Subtotal.StringFixed(2))
		fmt.Fprintf(&rows, "<tr><td>%d x %s</td><td>£%s</td></tr>",
			item.Quantity, html.EscapeString(item.ProductName), item.Subtotal.StringFixed(2))
	}

	fulfilment := "Pickup"
	if order.OrderType == enums.OrderTypeDelivery {
		fulfilment = "Delivery"
	}

	text = fmt.Sprintf("Thank you for your order from %s.\n\nOrder %s (%s)\n\n%s\nSubtotal: £%s\nDelivery fee: £%s\nTotal: £%s\n",
		restaurant, order.OrderNumber, fulfilment, lines.String(),
		order.Subtotal.StringFixed(2), order.DeliveryFee.StringFixed(2), order.Total.StringFixed(2))
	body = fmt.Sprintf("<p>Thank you for your order from %s.</p><p>Order <strong>%s</strong> (%s)</p><table>%s</table>"+
		"<p>Subtotal: £%s<br>Delivery fee: £%s<br><strong>Total: £%s</strong></p>",
		html.EscapeString(restaurant), html.EscapeString(order.OrderNumber), fulfilment, rows.String(),
		order.Subtotal.StringFixed(2), order.DeliveryFee.StringFixed(2), order.Total.StringFixed(2))
	return subject, text, body
}

func statusEmail(order models.Order, restaurant string) (subject, text, body string) {
	subject = fmt.Sprintf("Order Status Update - #%s", shortRef(order))
	msg := StatusMessage(order.Status)
	text = fmt.Sprintf("%s\n\nOrder %s\n\n%s\n", msg, order.OrderNumber, restaurant)
	body = fmt.Sprintf("<p>%s</p><p>Order <strong>%s</strong></p><p>%s</p>",
		html.EscapeString(msg), html.EscapeString(order.OrderNumber), html.EscapeString(restaurant))
	return subject, text, body
}
