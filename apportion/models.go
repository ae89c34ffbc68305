// Package apportion holds the apportionment ledger entry model and the pure
// allocation walk that splits a payment across a group's fees.
package apportion

import (
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/types"
)

// Kind distinguishes forward allocations from refund reversals.
type Kind string

const (
	KindAllocation Kind = "allocation"
	KindReversal   Kind = "reversal"
)

// Record is an immutable ledger entry linking one payment to one fee.
//
// Records are append-only: a refund appends a negative reversal entry rather
// than mutating or deleting prior rows, so every historical ledger state is
// reconstructible as a fold over records ordered by creation time.
//
// For a given payment, sum(ApportionedAmount + SurplusAmount) over all its
// records equals the payment amount exactly, in minor units.
type Record struct {
	types.Entity
	ID                id.RecordID  `json:"id"`
	PaymentID         id.PaymentID `json:"payment_id"` // Nil on refund reversals
	FeeID             id.FeeID     `json:"fee_id"`
	ApportionedAmount types.Money  `json:"apportioned_amount"`
	SurplusAmount     types.Money  `json:"surplus_amount"`
	Kind              Kind         `json:"kind"`
}

// Total returns apportioned + surplus, the record's full contribution to the
// payment conservation sum.
func (r *Record) Total() types.Money {
	return r.ApportionedAmount.AddAssuming(r.SurplusAmount, r.ApportionedAmount.Currency)
}
