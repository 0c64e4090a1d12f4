// Package notify delivers customer and operator messages for order events.
//
// Every dispatcher is fire-and-forget: sends run asynchronously, provider
// errors are swallowed into logs, and callers are never blocked or failed.
// The dispatcher has no correctness obligations toward the order record.
package notify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/order"
)

// Kind identifies a message template.
type Kind string

const (
	// KindOrderConfirmation is sent to the customer after a successful order.
	KindOrderConfirmation Kind = "order-confirmation"
	// KindOrderAlert is sent to the operator after a successful order.
	KindOrderAlert Kind = "order-alert"
	// KindStatusUpdate is sent to the customer when their order ships or
	// is delivered.
	KindStatusUpdate Kind = "status-update"
)

// message is a rendered email ready for transport.
type message struct {
	To      string
	Subject string
	Body    string
}

// render builds the message for a kind/order pair. The operator address is
// used for alerts; everything else goes to the customer snapshot's email.
func render(kind Kind, o *order.Order, operatorEmail string) message {
	switch kind {
	case KindOrderAlert:
		return message{
			To:      operatorEmail,
			Subject: fmt.Sprintf("New order %s (%s)", o.ID, o.Total.StringFixed(2)),
			Body: fmt.Sprintf(
				"Order %s placed by %s (%s, %s).\nItems: %s\nTotal: %s\nPayment reference: %s\n",
				o.ID, o.Customer.Name, o.Customer.Email, o.Customer.Region,
				itemSummary(o.Items), o.Total.StringFixed(2), o.Payment.Reference,
			),
		}
	case KindStatusUpdate:
		return message{
			To:      o.Customer.Email,
			Subject: fmt.Sprintf("Your order %s is %s", o.ID, o.Status),
			Body: fmt.Sprintf(
				"Hello %s,\n\nYour order %s is now %s.\n\nThank you for shopping with MedicoHub.\n",
				o.Customer.Name, o.ID, o.Status,
			),
		}
	default:
		return message{
			To:      o.Customer.Email,
			Subject: fmt.Sprintf("Order %s confirmed", o.ID),
			Body: fmt.Sprintf(
				"Hello %s,\n\nWe received your order %s.\nItems: %s\nSubtotal: %s\nShipping: %s\nDiscount: %s\nTotal: %s\n\nThank you for shopping with MedicoHub.\n",
				o.Customer.Name, o.ID, itemSummary(o.Items),
				o.Subtotal.StringFixed(2), o.ShippingFee.StringFixed(2),
				o.Discount.StringFixed(2), o.Total.StringFixed(2),
			),
		}
	}
}

func itemSummary(items []order.OrderItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%dx %s", it.Quantity, it.Name)
	}
	return strings.Join(parts, ", ")
}

var _ order.Notifier = (*LogDispatcher)(nil)

// LogDispatcher is the fallback dispatcher used when no mail transport is
// configured. It records every would-be send in the log.
type LogDispatcher struct {
	lg *zap.Logger
}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher(lg *zap.Logger) *LogDispatcher {
	return &LogDispatcher{lg: lg}
}

func (d *LogDispatcher) log(kind Kind, o *order.Order) {
	d.lg.Info("notification suppressed, no mail transport configured",
		zap.String("kind", string(kind)),
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
}

func (d *LogDispatcher) OrderConfirmation(o *order.Order) { d.log(KindOrderConfirmation, o) }
func (d *LogDispatcher) OrderAlert(o *order.Order)        { d.log(KindOrderAlert, o) }
func (d *LogDispatcher) StatusUpdate(o *order.Order)      { d.log(KindStatusUpdate, o) }
