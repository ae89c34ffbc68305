package reconcile_test

import (
	"testing"

	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/reconcile"
	"github.com/xraph/feeledger/types"
)

func newFee(code, nac, memo string, calculated, allocated int64, volume int64) *fee.Fee {
	return &fee.Fee{
		Entity:             types.NewEntity(),
		ID:                 id.NewFeeID(),
		Code:               code,
		NaturalAccountCode: nac,
		MemoLine:           memo,
		Volume:             volume,
		CalculatedAmount:   types.GBP(calculated),
		AllocatedAmount:    types.GBP(allocated),
	}
}

func TestAggregateGroupsByCodeAndAccount(t *testing.T) {
	fees := []*fee.Fee{
		newFee("FEE0001", "4481102133", "Civil issue", 5000, 5000, 1),
		newFee("FEE0002", "4481102134", "Civil hearing", 3000, 3000, 1),
		newFee("FEE0001", "4481102133", "Civil issue", 5000, 2000, 2),
	}

	rows := reconcile.Aggregate(fees)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// First-seen order is preserved.
	first := rows[0]
	if first.Code != "FEE0001" || first.NaturalAccountCode != "4481102133" {
		t.Fatalf("unexpected first row key: %s/%s", first.Code, first.NaturalAccountCode)
	}
	if !first.CalculatedAmount.Equal(types.GBP(10000)) {
		t.Errorf("calculated: got %s, want £100.00", first.CalculatedAmount)
	}
	if !first.AllocatedAmount.Equal(types.GBP(7000)) {
		t.Errorf("allocated: got %s, want £70.00", first.AllocatedAmount)
	}
	if first.Volume != 3 {
		t.Errorf("volume: got %d, want 3", first.Volume)
	}
	if first.MemoLine != "Civil issue" || first.MemoLineConflict {
		t.Errorf("memo: got %q (conflict=%v), want clean \"Civil issue\"", first.MemoLine, first.MemoLineConflict)
	}

	second := rows[1]
	if second.Code != "FEE0002" {
		t.Errorf("second row code: got %s, want FEE0002", second.Code)
	}
	if !second.CalculatedAmount.Equal(types.GBP(3000)) {
		t.Errorf("second row calculated: got %s, want £30.00", second.CalculatedAmount)
	}
}

func TestAggregateSameCodeDifferentAccount(t *testing.T) {
	fees := []*fee.Fee{
		newFee("FEE0001", "4481102133", "m", 5000, 0, 1),
		newFee("FEE0001", "4481102199", "m", 5000, 0, 1),
	}

	rows := reconcile.Aggregate(fees)
	if len(rows) != 2 {
		t.Fatalf("same code with different account codes must not merge: got %d rows", len(rows))
	}
}

func TestAggregateMemoLineConflict(t *testing.T) {
	fees := []*fee.Fee{
		newFee("FEE0001", "4481102133", "Civil issue", 5000, 0, 1),
		newFee("FEE0001", "4481102133", "Civil issue (amended)", 5000, 0, 1),
	}

	rows := reconcile.Aggregate(fees)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if !row.MemoLineConflict {
		t.Error("expected memo line conflict to be flagged")
	}
	// Last member wins for the headline value.
	if row.MemoLine != "Civil issue (amended)" {
		t.Errorf("memo line: got %q, want last member's value", row.MemoLine)
	}
	if len(row.MemoLines) != 2 {
		t.Fatalf("expected 2 distinct memo lines, got %d", len(row.MemoLines))
	}
	if row.MemoLines[0] != "Civil issue" || row.MemoLines[1] != "Civil issue (amended)" {
		t.Errorf("memo lines out of order: %v", row.MemoLines)
	}
}

func TestAggregateTolerantOfPartialFees(t *testing.T) {
	// Fees with no amounts at all must not panic or corrupt sums.
	bare := &fee.Fee{
		Entity: types.NewEntity(),
		ID:     id.NewFeeID(),
		Code:   "FEE0003",
		Volume: 1,
	}
	fees := []*fee.Fee{
		newFee("FEE0003", "", "memo", 5000, 1000, 1),
		bare,
	}

	rows := reconcile.Aggregate(fees)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].CalculatedAmount.Equal(types.GBP(5000)) {
		t.Errorf("calculated: got %s, want £50.00", rows[0].CalculatedAmount)
	}
	if !rows[0].AllocatedAmount.Equal(types.GBP(1000)) {
		t.Errorf("allocated: got %s, want £10.00", rows[0].AllocatedAmount)
	}
	if rows[0].Volume != 2 {
		t.Errorf("volume: got %d, want 2", rows[0].Volume)
	}
}

func TestAggregateEmpty(t *testing.T) {
	rows := reconcile.Aggregate(nil)
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestAggregateStableOrder(t *testing.T) {
	fees := []*fee.Fee{
		newFee("B", "2", "m", 100, 0, 1),
		newFee("A", "1", "m", 100, 0, 1),
		newFee("C", "3", "m", 100, 0, 1),
		newFee("A", "1", "m", 100, 0, 1),
	}

	rows := reconcile.Aggregate(fees)
	want := []string{"B", "A", "C"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, code := range want {
		if rows[i].Code != code {
			t.Errorf("row %d: got %s, want %s", i, rows[i].Code, code)
		}
	}
}
