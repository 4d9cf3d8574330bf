package models

import (
	"fmt"
	"strings"
)

// OrderStatus is one step of the order lifecycle
type OrderStatus string

const (
	StatusForEvaluation      OrderStatus = "For Evaluation"
	StatusContractSigning    OrderStatus = "Contract Signing"
	StatusWaitingForPayment  OrderStatus = "Waiting for Payment"
	StatusVerifyingPayment   OrderStatus = "Verifying Payment"
	StatusInProduction       OrderStatus = "In Production"
	StatusWaitingForShipment OrderStatus = "Waiting for Shipment"
	StatusInTransit          OrderStatus = "In Transit"
	StatusCompleted          OrderStatus = "Completed"
	StatusCancelled          OrderStatus = "Cancelled"
)

// forwardPath is the happy path in order; Cancelled sits outside it
var forwardPath = []OrderStatus{
	StatusForEvaluation,
	StatusContractSigning,
	StatusWaitingForPayment,
	StatusVerifyingPayment,
	StatusInProduction,
	StatusWaitingForShipment,
	StatusInTransit,
	StatusCompleted,
}

// transitions is the single table of legal status moves.
var transitions = map[OrderStatus][]OrderStatus{
	StatusForEvaluation:      {StatusContractSigning, StatusCancelled},
	StatusContractSigning:    {StatusWaitingForPayment},
	StatusWaitingForPayment:  {StatusVerifyingPayment, StatusCancelled},
	StatusVerifyingPayment:   {StatusInProduction, StatusWaitingForPayment},
	StatusInProduction:       {StatusWaitingForShipment},
	StatusWaitingForShipment: {StatusInTransit},
	StatusInTransit:          {StatusCompleted},
	StatusCompleted:          nil,
	StatusCancelled:          nil,
}

// AllOrderStatuses returns every status in lifecycle order, Cancelled last
func AllOrderStatuses() []OrderStatus {
	out := make([]OrderStatus, 0, len(forwardPath)+1)
	out = append(out, forwardPath...)
	return append(out, StatusCancelled)
}

// ParseOrderStatus accepts an exact status string, ignoring surrounding space and case
func ParseOrderStatus(s string) (OrderStatus, error) {
	s = strings.TrimSpace(s)
	for _, status := range AllOrderStatuses() {
		if strings.EqualFold(string(status), s) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsValid reports whether s is a member of the lifecycle enumeration
func (s OrderStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsCancellable reports whether a customer may cancel from s
func (s OrderStatus) IsCancellable() bool {
	return s == StatusForEvaluation || s == StatusWaitingForPayment
}

// Rank is the position on the forward path, or -1 for Cancelled and unknown values
func (s OrderStatus) Rank() int {
	for i, status := range forwardPath {
		if status == s {
			return i
		}
	}
	return -1
}

// CanTransitionTo reports whether next is a legal successor of s
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal successors of s
func (s OrderStatus) NextStatuses() []OrderStatus {
	return append([]OrderStatus(nil), transitions[s]...)
}

// TransitionError is returned when a status change is not allowed
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	if !e.To.IsValid() {
		return fmt.Sprintf("%q is not a valid order status", e.To)
	}
	return fmt.Sprintf("cannot move order from %q to %q", e.From, e.To)
}
