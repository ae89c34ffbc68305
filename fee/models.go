// Package fee defines the fee entity: one chargeable line item inside a
// payment group, with its running due/allocated balances.
package fee

import (
	"time"

	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/types"
)

// Fee is a single chargeable item within a payment group.
//
// Balances obey allocated + due == calculated at all times. Only the
// allocation engine and the readjustment path mutate them; refunds reduce
// CalculatedAmount explicitly so the invariant survives.
type Fee struct {
	types.Entity
	ID                 id.FeeID    `json:"id"`
	GroupID            id.GroupID  `json:"group_id"`
	Code               string      `json:"code"`
	FeeVersion         string      `json:"fee_version"`
	Volume             int64       `json:"volume"`
	CalculatedAmount   types.Money `json:"calculated_amount"`
	NetAmount          types.Money `json:"net_amount"`
	NaturalAccountCode string      `json:"natural_account_code"`
	MemoLine           string      `json:"memo_line"`
	DueAmount          types.Money `json:"due_amount"`
	AllocatedAmount    types.Money `json:"allocated_amount"`
	DateApportioned    *time.Time  `json:"date_apportioned,omitempty"`

	// Removed marks a soft-removed fee. A fee referenced by apportionment
	// records is never deleted, only flagged.
	Removed bool `json:"removed,omitempty"`
}

// Currency returns the fee's currency, falling back through the amount
// fields so partially-populated fees still report something usable.
func (f *Fee) Currency() string {
	if f.CalculatedAmount.Currency != "" {
		return f.CalculatedAmount.Currency
	}
	if f.DueAmount.Currency != "" {
		return f.DueAmount.Currency
	}
	return f.AllocatedAmount.Currency
}

// BalancesConsistent reports whether allocated + due == calculated.
// Absent amounts are treated as zero.
func (f *Fee) BalancesConsistent() bool {
	cur := f.Currency()
	if cur == "" {
		return true
	}
	sum := f.AllocatedAmount.AddAssuming(f.DueAmount, cur)
	return sum.Amount == f.CalculatedAmount.Amount
}
