// Package feeledger provides a fee apportionment and reconciliation ledger for
// court and tribunal payment services.
//
// Feeledger is designed as a library, not a service. Import it directly into
// the surrounding payments application. It provides:
//
//   - Deterministic payment-to-fee apportionment with exact minor-unit arithmetic
//   - An append-only apportionment ledger (reversals, never mutations)
//   - Refund readjustment with strict refund-bound validation
//   - Grouped reconciliation rows for external financial extraction
//   - Group-scoped optimistic concurrency so unrelated groups never serialize
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/feeledger"
//	    "github.com/xraph/feeledger/store/postgres"
//	)
//
//	st := postgres.New(db)
//	eng := feeledger.New(st)
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// A payment group aggregates an ordered list of fees with the payments made
// against them:
//
//	grp, err := eng.CreateGroup(ctx, "")
//	err = eng.AddFee(ctx, grp.Reference, &fee.Fee{
//	    Code:             "FEE0002",
//	    CalculatedAmount: types.GBP(5000),
//	})
//
// When a payment reaches a terminal success status, allocate it across the
// group's fees in insertion order:
//
//	records, err := eng.Allocate(ctx, paymentID)
//
// Each apportionment record is an immutable fact linking one payment to one
// fee. For every payment the records conserve value exactly:
// sum(apportioned + surplus) equals the payment amount in minor units.
//
// A refund that reduces a fee's effective amount appends a negative reversal
// record rather than rewriting history:
//
//	rec, err := eng.Readjust(ctx, feeID, types.GBP(2000), 0)
//
// Reconciliation rows group fees by (code, natural account code) for the
// downstream finance pull:
//
//	rows, err := eng.ReconciliationRows(ctx, grp.Reference)
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest currency
// unit (pence for GBP, cents for EUR, etc).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	grp_01h2xcejqtf2nbrexx3vqjhp41  // Payment group ID
//	fee_01h2xcejqtf2nbrexx3vqjhp41  // Fee ID
//	pay_01h455vb4pex5vsknk084sn02q  // Payment ID
//	apn_01h455vb4pex5vsknk084sn02q  // Apportionment record ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of ledger entries.
package feeledger
