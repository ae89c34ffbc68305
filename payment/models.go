// Package payment defines payment groups and the payment receipts attached
// to them.
package payment

import (
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/types"
)

// Status is the lifecycle state of a payment.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusError:
		return true
	default:
		return false
	}
}

// Successful reports whether the payment reached the terminal success state
// that makes it eligible for apportionment.
func (s Status) Successful() bool { return s == StatusSuccess }

// Group aggregates one payment-group reference with an ordered sequence of
// fees and zero or more payments. The group exclusively owns its fee list;
// fees never move between groups.
//
// Version is the optimistic concurrency token. Every committed allocation or
// readjustment bumps it; writers that lose the race observe a version
// mismatch and must retry.
type Group struct {
	types.Entity
	ID        id.GroupID `json:"id"`
	Reference string     `json:"reference"`
	Version   int64      `json:"version"`
}

// Payment is a monetary receipt attached to exactly one group.
//
// Amount is fixed once the payment reaches a terminal success state; the
// payment is immutable thereafter except for its relationship to
// apportionment records.
type Payment struct {
	types.Entity
	ID        id.PaymentID `json:"id"`
	GroupID   id.GroupID   `json:"group_id"`
	Reference string       `json:"reference"`
	Amount    types.Money  `json:"amount"`
	Channel   string       `json:"channel,omitempty"`
	Status    Status       `json:"status"`
}
