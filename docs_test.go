package feeledger_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/payment"
	"github.com/xraph/feeledger/store/memory"
	"github.com/xraph/feeledger/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine
		eng := feeledger.New(store,
			feeledger.WithLogger(slog.Default()),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Create a payment group
		g, err := eng.CreateGroup(ctx, "2024-0000000001")
		if err != nil {
			t.Fatal(err)
		}

		// Add fees in the order they should be paid
		issueFee := &fee.Fee{
			Code:               "FEE0001",
			FeeVersion:         "1",
			CalculatedAmount:   types.GBP(5000), // £50.00
			NaturalAccountCode: "4481102133",
			MemoLine:           "Civil - money claim issue",
		}
		if err := eng.AddFee(ctx, g.Reference, issueFee); err != nil {
			t.Fatal(err)
		}

		hearingFee := &fee.Fee{
			Code:               "FEE0002",
			FeeVersion:         "1",
			CalculatedAmount:   types.GBP(3000), // £30.00
			NaturalAccountCode: "4481102134",
			MemoLine:           "Civil - hearing",
		}
		if err := eng.AddFee(ctx, g.Reference, hearingFee); err != nil {
			t.Fatal(err)
		}

		// Record a successful payment covering both fees plus £20.00 surplus
		pay := &payment.Payment{
			Amount:  types.GBP(10000), // £100.00
			Channel: "bulk scan",
			Status:  payment.StatusSuccess,
		}
		if err := eng.RecordPayment(ctx, g.Reference, pay); err != nil {
			t.Fatal(err)
		}

		// Apportion the payment across the group's fees
		records, err := eng.Allocate(ctx, pay.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 apportionment records, got %d", len(records))
		}

		// Conservation: apportioned + surplus across records equals the payment
		total := types.Zero("gbp")
		for _, r := range records {
			total = total.Add(r.ApportionedAmount).Add(r.SurplusAmount)
		}
		if !total.Equal(pay.Amount) {
			t.Errorf("conservation violated: records sum to %s, payment is %s", total, pay.Amount)
		}

		// Surplus lands on the last fee allocated
		last := records[len(records)-1]
		if !last.SurplusAmount.Equal(types.GBP(2000)) {
			t.Errorf("expected £20.00 surplus on last record, got %s", last.SurplusAmount)
		}

		// Allocation is one-shot: a retry returns the prior records unchanged
		again, err := eng.Allocate(ctx, pay.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(records) {
			t.Fatalf("retry returned %d records, want %d", len(again), len(records))
		}
		for i := range again {
			if again[i].ID.String() != records[i].ID.String() {
				t.Errorf("retry record %d differs: %s != %s", i, again[i].ID, records[i].ID)
			}
		}

		// Refund £10.00 against the hearing fee
		rev, err := eng.Readjust(ctx, hearingFee.ID, types.GBP(1000), 0)
		if err != nil {
			t.Fatal(err)
		}
		if !rev.ApportionedAmount.Equal(types.GBP(-1000)) {
			t.Errorf("expected -£10.00 reversal, got %s", rev.ApportionedAmount)
		}

		// A refund above the remaining allocated amount is rejected
		if _, err := eng.Readjust(ctx, hearingFee.ID, types.GBP(99999), 0); !errors.Is(err, feeledger.ErrRefundExceedsAllocated) {
			t.Errorf("expected ErrRefundExceedsAllocated, got %v", err)
		}

		// Pull reconciliation rows for the external extract
		rows, err := eng.ReconciliationRows(ctx, g.Reference)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 reconciliation rows, got %d", len(rows))
		}

		// Inspect the full ledger state
		state, err := eng.LedgerState(ctx, g.Reference)
		if err != nil {
			t.Fatal(err)
		}
		if len(state.Fees) != 2 || len(state.Payments) != 1 || len(state.Records) != 3 {
			t.Errorf("unexpected ledger state: %d fees, %d payments, %d records",
				len(state.Fees), len(state.Payments), len(state.Records))
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.GBP(5000)   // £50.00
		_ = types.EUR(9900)   // €99.00
		_ = types.Zero("gbp") // £0.00

		// Arithmetic
		m1 := types.GBP(100)
		m2 := types.GBP(200)
		_ = m1.Add(m2)     // £3.00
		_ = m1.Multiply(3) // £3.00
		_ = m1.Negate()    // -£1.00

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "£1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
