package order

import "fmt"

// Status is an order's position in the fulfillment lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the explicit allowed-transition table. Transitions are
// operator-driven, so backwards moves between non-terminal states are
// permitted as manual corrections. Delivered and cancelled are terminal,
// and cancellation is only reachable before shipment.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusPending, StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusPending, StatusProcessing, StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// IllegalTransitionError indicates a status change that the transition
// table does not permit.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s accepts no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether the table permits moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// notifiable reports whether arriving at s is customer-visible and should
// trigger a status-update notification.
func notifiable(s Status) bool {
	return s == StatusShipped || s == StatusDelivered
}
