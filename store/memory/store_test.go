package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
	"github.com/xraph/feeledger/store/memory"
	"github.com/xraph/feeledger/types"
)

func newGroup(reference string) *payment.Group {
	return &payment.Group{
		Entity:    types.NewEntity(),
		ID:        id.NewGroupID(),
		Reference: reference,
	}
}

func newFeeAt(groupID id.GroupID, code string, due int64, at time.Time) *fee.Fee {
	return &fee.Fee{
		Entity:           types.Entity{CreatedAt: at, UpdatedAt: at},
		ID:               id.NewFeeID(),
		GroupID:          groupID,
		Code:             code,
		Volume:           1,
		CalculatedAmount: types.GBP(due),
		DueAmount:        types.GBP(due),
		AllocatedAmount:  types.Zero("gbp"),
	}
}

func newPayment(groupID id.GroupID, reference string, amount int64, status payment.Status) *payment.Payment {
	return &payment.Payment{
		Entity:    types.NewEntity(),
		ID:        id.NewPaymentID(),
		GroupID:   groupID,
		Reference: reference,
		Amount:    types.GBP(amount),
		Status:    status,
	}
}

func TestGroupLifecycle(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	g := newGroup("2024-0000000001")
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	got, err := s.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Reference != g.Reference {
		t.Errorf("reference: got %q, want %q", got.Reference, g.Reference)
	}

	byRef, err := s.GetGroupByReference(ctx, g.Reference)
	if err != nil {
		t.Fatalf("GetGroupByReference failed: %v", err)
	}
	if byRef.ID.String() != g.ID.String() {
		t.Errorf("ID mismatch: %s != %s", byRef.ID, g.ID)
	}

	// Duplicate reference is rejected.
	dup := newGroup(g.Reference)
	if err := s.CreateGroup(ctx, dup); !errors.Is(err, feeledger.ErrGroupExists) {
		t.Errorf("expected ErrGroupExists, got %v", err)
	}

	if _, err := s.GetGroup(ctx, id.NewGroupID()); !errors.Is(err, feeledger.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestFeeOrderingAndRemoval(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	g := newGroup("2024-0000000002")
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC()
	codes := []string{"FEE0001", "FEE0002", "FEE0003"}
	fees := make([]*fee.Fee, len(codes))
	for i, code := range codes {
		fees[i] = newFeeAt(g.ID, code, 1000, base.Add(time.Duration(i)*time.Second))
		if err := s.CreateFee(ctx, fees[i]); err != nil {
			t.Fatalf("CreateFee %s failed: %v", code, err)
		}
	}

	// Insertion order by creation time.
	listed, err := s.ListGroupFees(ctx, g.ID, fee.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 fees, got %d", len(listed))
	}
	for i, code := range codes {
		if listed[i].Code != code {
			t.Errorf("position %d: got %s, want %s", i, listed[i].Code, code)
		}
	}

	// Limit and offset.
	page, err := s.ListGroupFees(ctx, g.ID, fee.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Code != "FEE0002" {
		t.Errorf("paging: got %d fees, first %q", len(page), page[0].Code)
	}

	// Soft removal hides the fee unless explicitly included.
	if err := s.RemoveFee(ctx, fees[1].ID); err != nil {
		t.Fatal(err)
	}
	visible, err := s.ListGroupFees(ctx, g.ID, fee.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 2 {
		t.Errorf("expected 2 visible fees after removal, got %d", len(visible))
	}
	all, err := s.ListGroupFees(ctx, g.ID, fee.ListOpts{IncludeRemoved: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 fees with IncludeRemoved, got %d", len(all))
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	g := newGroup("2024-0000000003")
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatal(err)
	}
	f := newFeeAt(g.ID, "FEE0001", 5000, time.Now().UTC())
	if err := s.CreateFee(ctx, f); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetFee(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	got.DueAmount = types.GBP(1)

	fresh, err := s.GetFee(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !fresh.DueAmount.Equal(types.GBP(5000)) {
		t.Errorf("stored fee mutated through a read copy: due is %s", fresh.DueAmount)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	g := newGroup("2024-0000000004")
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatal(err)
	}

	p := newPayment(g.ID, "RC-1", 8000, payment.StatusCreated)
	if err := s.CreatePayment(ctx, p); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	// Duplicate reference is rejected.
	dup := newPayment(g.ID, "RC-1", 100, payment.StatusCreated)
	if err := s.CreatePayment(ctx, dup); !errors.Is(err, feeledger.ErrPaymentExists) {
		t.Errorf("expected ErrPaymentExists, got %v", err)
	}

	byRef, err := s.GetPaymentByReference(ctx, "RC-1")
	if err != nil {
		t.Fatal(err)
	}
	if byRef.ID.String() != p.ID.String() {
		t.Errorf("ID mismatch: %s != %s", byRef.ID, p.ID)
	}

	if err := s.UpdatePaymentStatus(ctx, p.ID, payment.StatusSuccess); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != payment.StatusSuccess {
		t.Errorf("status: got %s, want success", got.Status)
	}

	// Status filter.
	failed := newPayment(g.ID, "RC-2", 100, payment.StatusFailed)
	if err := s.CreatePayment(ctx, failed); err != nil {
		t.Fatal(err)
	}
	successes, err := s.ListGroupPayments(ctx, g.ID, payment.ListOpts{Status: payment.StatusSuccess})
	if err != nil {
		t.Fatal(err)
	}
	if len(successes) != 1 || successes[0].ID.String() != p.ID.String() {
		t.Errorf("status filter returned %d payments", len(successes))
	}
}

func TestCommitAllocationVersionCheck(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	g := newGroup("2024-0000000005")
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatal(err)
	}
	f := newFeeAt(g.ID, "FEE0001", 5000, time.Now().UTC())
	if err := s.CreateFee(ctx, f); err != nil {
		t.Fatal(err)
	}
	p := newPayment(g.ID, "RC-5", 5000, payment.StatusSuccess)
	if err := s.CreatePayment(ctx, p); err != nil {
		t.Fatal(err)
	}

	f.DueAmount = types.Zero("gbp")
	f.AllocatedAmount = types.GBP(5000)
	rec := &apportion.Record{
		Entity:            types.NewEntity(),
		ID:                id.NewRecordID(),
		PaymentID:         p.ID,
		FeeID:             f.ID,
		ApportionedAmount: types.GBP(5000),
		SurplusAmount:     types.Zero("gbp"),
		Kind:              apportion.KindAllocation,
	}

	if err := s.CommitAllocation(ctx, g.ID, 0, []*fee.Fee{f}, []*apportion.Record{rec}); err != nil {
		t.Fatalf("CommitAllocation failed: %v", err)
	}

	// The commit bumped the version, so a writer holding the old version loses.
	err := s.CommitAllocation(ctx, g.ID, 0, []*fee.Fee{f}, []*apportion.Record{rec})
	if !errors.Is(err, feeledger.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	got, err := s.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 {
		t.Errorf("version: got %d, want 1", got.Version)
	}

	// The fee balance update landed.
	stored, err := s.GetFee(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.AllocatedAmount.Equal(types.GBP(5000)) {
		t.Errorf("allocated: got %s, want £50.00", stored.AllocatedAmount)
	}

	recs, err := s.ListPaymentRecords(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
}

func TestCommitReadjustmentAppendsReversal(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	g := newGroup("2024-0000000006")
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatal(err)
	}
	f := newFeeAt(g.ID, "FEE0001", 5000, time.Now().UTC())
	f.DueAmount = types.Zero("gbp")
	f.AllocatedAmount = types.GBP(5000)
	if err := s.CreateFee(ctx, f); err != nil {
		t.Fatal(err)
	}

	f.AllocatedAmount = types.GBP(4000)
	f.CalculatedAmount = types.GBP(4000)
	rev := &apportion.Record{
		Entity:            types.NewEntity(),
		ID:                id.NewRecordID(),
		PaymentID:         id.Nil,
		FeeID:             f.ID,
		ApportionedAmount: types.GBP(-1000),
		SurplusAmount:     types.Zero("gbp"),
		Kind:              apportion.KindReversal,
	}

	if err := s.CommitReadjustment(ctx, g.ID, 0, f, rev); err != nil {
		t.Fatalf("CommitReadjustment failed: %v", err)
	}

	got, err := s.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 {
		t.Errorf("version: got %d, want 1", got.Version)
	}

	// Reversals show up on the fee's history but never on any payment.
	feeRecs, err := s.ListFeeRecords(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(feeRecs) != 1 || feeRecs[0].Kind != apportion.KindReversal {
		t.Fatalf("expected one reversal record on the fee, got %d", len(feeRecs))
	}
	payRecs, err := s.ListPaymentRecords(ctx, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(payRecs) != 0 {
		t.Errorf("reversal leaked into payment records: %d", len(payRecs))
	}
}

func TestCloseMarksStoreUnavailable(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping before close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, feeledger.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed after close, got %v", err)
	}
}
