package models

import "fmt"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPreparing  OrderStatus = "preparing"
	StatusDelivering OrderStatus = "delivering"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusDelivering, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// AllowedTransitions returns the statuses an order may move to from the
// given status. Terminal statuses return nil.
func AllowedTransitions(from OrderStatus) []OrderStatus {
	switch from {
	case StatusPending:
		return []OrderStatus{StatusConfirmed, StatusCancelled}
	case StatusConfirmed:
		return []OrderStatus{StatusPreparing, StatusCancelled}
	case StatusPreparing:
		return []OrderStatus{StatusDelivering, StatusCancelled}
	case StatusDelivering:
		return []OrderStatus{StatusDelivered}
	case StatusDelivered, StatusCancelled:
		return nil
	}
	return nil
}

// Transition is the pure state-machine check. It returns nil when moving
// from -> to is allowed and *InvalidTransitionError otherwise.
func Transition(from, to OrderStatus) error {
	for _, s := range AllowedTransitions(from) {
		if s == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %q to %q, allowed: %v", e.From, e.To, AllowedTransitions(e.From))
}
