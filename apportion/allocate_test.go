package apportion_test

import (
	"testing"
	"time"

	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/types"
)

func newFee(code string, due int64) *fee.Fee {
	return &fee.Fee{
		Entity:           types.NewEntity(),
		ID:               id.NewFeeID(),
		Code:             code,
		Volume:           1,
		CalculatedAmount: types.GBP(due),
		DueAmount:        types.GBP(due),
		AllocatedAmount:  types.Zero("gbp"),
	}
}

func TestAllocateExactCover(t *testing.T) {
	fees := []*fee.Fee{newFee("FEE0001", 5000), newFee("FEE0002", 3000)}
	at := time.Now().UTC()

	splits, err := apportion.Allocate(types.GBP(8000), fees, at)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}

	if !splits[0].ApportionedAmount.Equal(types.GBP(5000)) {
		t.Errorf("first split: got %s, want £50.00", splits[0].ApportionedAmount)
	}
	if !splits[1].ApportionedAmount.Equal(types.GBP(3000)) {
		t.Errorf("second split: got %s, want £30.00", splits[1].ApportionedAmount)
	}
	for i, sp := range splits {
		if !sp.SurplusAmount.IsZero() {
			t.Errorf("split %d: unexpected surplus %s", i, sp.SurplusAmount)
		}
	}

	// Fee balances are mutated in place.
	for i, f := range fees {
		if !f.DueAmount.IsZero() {
			t.Errorf("fee %d: due should be zero, got %s", i, f.DueAmount)
		}
		if !f.AllocatedAmount.Equal(f.CalculatedAmount) {
			t.Errorf("fee %d: allocated %s != calculated %s", i, f.AllocatedAmount, f.CalculatedAmount)
		}
		if f.DateApportioned == nil || !f.DateApportioned.Equal(at) {
			t.Errorf("fee %d: date apportioned not set to allocation time", i)
		}
	}

	if !apportion.Conserved(types.GBP(8000), splits) {
		t.Error("splits do not conserve the payment amount")
	}
}

func TestAllocateSurplusOnLastFee(t *testing.T) {
	fees := []*fee.Fee{newFee("FEE0001", 5000), newFee("FEE0002", 3000)}

	splits, err := apportion.Allocate(types.GBP(10000), fees, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}

	last := splits[len(splits)-1]
	if !last.SurplusAmount.Equal(types.GBP(2000)) {
		t.Errorf("last split surplus: got %s, want £20.00", last.SurplusAmount)
	}
	if !splits[0].SurplusAmount.IsZero() {
		t.Errorf("first split should carry no surplus, got %s", splits[0].SurplusAmount)
	}

	// Surplus never inflates the fee's own allocated balance.
	if !fees[1].AllocatedAmount.Equal(types.GBP(3000)) {
		t.Errorf("last fee allocated: got %s, want £30.00", fees[1].AllocatedAmount)
	}

	if !apportion.Conserved(types.GBP(10000), splits) {
		t.Error("splits do not conserve the payment amount")
	}
}

func TestAllocateShortfall(t *testing.T) {
	fees := []*fee.Fee{newFee("FEE0001", 5000), newFee("FEE0002", 3000)}

	splits, err := apportion.Allocate(types.GBP(4000), fees, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(splits) != 1 {
		t.Fatalf("expected 1 split, got %d", len(splits))
	}
	if !splits[0].ApportionedAmount.Equal(types.GBP(4000)) {
		t.Errorf("split: got %s, want £40.00", splits[0].ApportionedAmount)
	}

	// First fee keeps the remainder due, second fee is untouched.
	if !fees[0].DueAmount.Equal(types.GBP(1000)) {
		t.Errorf("first fee due: got %s, want £10.00", fees[0].DueAmount)
	}
	if !fees[1].DueAmount.Equal(types.GBP(3000)) {
		t.Errorf("second fee due: got %s, want £30.00", fees[1].DueAmount)
	}
	if fees[1].DateApportioned != nil {
		t.Error("second fee should not be marked apportioned")
	}
}

func TestAllocatePartialSecondFee(t *testing.T) {
	fees := []*fee.Fee{newFee("FEE0001", 5000), newFee("FEE0002", 3000)}

	splits, err := apportion.Allocate(types.GBP(6000), fees, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}
	if !splits[1].ApportionedAmount.Equal(types.GBP(1000)) {
		t.Errorf("second split: got %s, want £10.00", splits[1].ApportionedAmount)
	}
	if !fees[1].DueAmount.Equal(types.GBP(2000)) {
		t.Errorf("second fee due: got %s, want £20.00", fees[1].DueAmount)
	}
}

func TestAllocateSkipsSatisfiedFees(t *testing.T) {
	paid := newFee("FEE0001", 5000)
	paid.DueAmount = types.Zero("gbp")
	paid.AllocatedAmount = types.GBP(5000)
	fees := []*fee.Fee{paid, newFee("FEE0002", 3000)}

	splits, err := apportion.Allocate(types.GBP(3000), fees, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(splits) != 1 {
		t.Fatalf("expected 1 split, got %d", len(splits))
	}
	if splits[0].Fee.Code != "FEE0002" {
		t.Errorf("split landed on %s, want FEE0002", splits[0].Fee.Code)
	}
}

func TestAllocateSurplusOnFirstFeeWhenNothingDue(t *testing.T) {
	a := newFee("FEE0001", 5000)
	a.DueAmount = types.Zero("gbp")
	a.AllocatedAmount = types.GBP(5000)
	b := newFee("FEE0002", 3000)
	b.DueAmount = types.Zero("gbp")
	b.AllocatedAmount = types.GBP(3000)

	splits, err := apportion.Allocate(types.GBP(2500), []*fee.Fee{a, b}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(splits) != 1 {
		t.Fatalf("expected 1 split, got %d", len(splits))
	}
	if splits[0].Fee.Code != "FEE0001" {
		t.Errorf("surplus pinned to %s, want first fee FEE0001", splits[0].Fee.Code)
	}
	if !splits[0].ApportionedAmount.IsZero() {
		t.Errorf("apportioned should be zero, got %s", splits[0].ApportionedAmount)
	}
	if !splits[0].SurplusAmount.Equal(types.GBP(2500)) {
		t.Errorf("surplus: got %s, want £25.00", splits[0].SurplusAmount)
	}
	if a.DateApportioned == nil {
		t.Error("first fee should be marked apportioned")
	}
}

func TestAllocateZeroAmount(t *testing.T) {
	fees := []*fee.Fee{newFee("FEE0001", 5000)}

	splits, err := apportion.Allocate(types.GBP(0), fees, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if splits != nil {
		t.Errorf("expected no splits for zero payment, got %d", len(splits))
	}
	if !fees[0].DueAmount.Equal(types.GBP(5000)) {
		t.Error("zero payment should not touch fee balances")
	}
}

func TestAllocateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		amount types.Money
		fees   []*fee.Fee
	}{
		{"no currency", types.Money{Amount: 100}, []*fee.Fee{newFee("FEE0001", 5000)}},
		{"negative amount", types.GBP(-100), []*fee.Fee{newFee("FEE0001", 5000)}},
		{"currency mismatch", types.EUR(100), []*fee.Fee{newFee("FEE0001", 5000)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := apportion.Allocate(tt.amount, tt.fees, time.Now().UTC())
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestConserved(t *testing.T) {
	fees := []*fee.Fee{newFee("FEE0001", 5000), newFee("FEE0002", 3000)}
	splits, err := apportion.Allocate(types.GBP(9500), fees, time.Now().UTC())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if !apportion.Conserved(types.GBP(9500), splits) {
		t.Error("Conserved should hold for the allocating amount")
	}
	if apportion.Conserved(types.GBP(9000), splits) {
		t.Error("Conserved should fail for a different amount")
	}
}
