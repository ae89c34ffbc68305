package apportion

import (
	"fmt"
	"time"

	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/types"
)

// Split is one fee's share of an allocated payment. The referenced fee has
// already had its balances mutated to reflect the split.
type Split struct {
	Fee               *fee.Fee
	ApportionedAmount types.Money
	SurplusAmount     types.Money
}

// Allocate walks orderedFees in the group's fixed insertion order and splits
// amount across them: each fee takes min(remaining, due) until the payment
// is exhausted.
//
// If the payment exceeds the total outstanding due, the entire leftover is
// attributed as surplus on the last fee that received any allocation, or on
// the first fee when nothing needed allocation. Every non-zero payment is
// therefore attached to at least one split and the splits conserve the
// payment amount exactly.
//
// If the payment runs out first, trailing fees simply receive no split;
// partial satisfaction is a normal state, not an error.
//
// Fees touched by a split are mutated in place: DueAmount decremented,
// AllocatedAmount incremented, DateApportioned set to at. Untouched fees are
// left alone.
func Allocate(amount types.Money, orderedFees []*fee.Fee, at time.Time) ([]Split, error) {
	if amount.Currency == "" {
		return nil, fmt.Errorf("apportion: payment amount has no currency")
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("apportion: payment amount %s is negative", amount)
	}
	for _, f := range orderedFees {
		if cur := f.Currency(); cur != "" && cur != amount.Currency {
			return nil, fmt.Errorf("apportion: fee %s currency %q does not match payment currency %q",
				f.ID, cur, amount.Currency)
		}
	}
	if amount.IsZero() {
		return nil, nil
	}

	remaining := amount
	splits := make([]Split, 0, len(orderedFees))

	for _, f := range orderedFees {
		if remaining.IsZero() {
			break
		}

		need := f.DueAmount
		if need.Currency == "" {
			need = types.Zero(amount.Currency)
		}
		if !need.IsPositive() {
			continue
		}

		take := remaining.Min(need)

		f.DueAmount = need.Subtract(take)
		f.AllocatedAmount = f.AllocatedAmount.AddAssuming(take, amount.Currency)
		t := at
		f.DateApportioned = &t
		f.Touch()

		splits = append(splits, Split{
			Fee:               f,
			ApportionedAmount: take,
			SurplusAmount:     types.Zero(amount.Currency),
		})
		remaining = remaining.Subtract(take)
	}

	if remaining.IsPositive() {
		if len(splits) > 0 {
			// Surplus rides on the last fee that received an allocation.
			splits[len(splits)-1].SurplusAmount = remaining
		} else {
			// Pure over-payment against a zero-balance group: pin the
			// surplus to the first fee so the payment is still recorded.
			f := orderedFees[0]
			t := at
			f.DateApportioned = &t
			f.Touch()
			splits = append(splits, Split{
				Fee:               f,
				ApportionedAmount: types.Zero(amount.Currency),
				SurplusAmount:     remaining,
			})
		}
	}

	return splits, nil
}

// Conserved reports whether the splits sum back to amount exactly.
func Conserved(amount types.Money, splits []Split) bool {
	total := types.Zero(amount.Currency)
	for _, sp := range splits {
		total = total.Add(sp.ApportionedAmount).Add(sp.SurplusAmount)
	}
	return total.Equal(amount)
}
