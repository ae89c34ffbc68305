package feeledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
	"github.com/xraph/feeledger/plugin"
	"github.com/xraph/feeledger/reconcile"
	"github.com/xraph/feeledger/reference"
	"github.com/xraph/feeledger/store"
	"github.com/xraph/feeledger/types"
)

// Engine is the fee apportionment and reconciliation ledger.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	refs    *reference.Generator
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		refs:    reference.NewGenerator(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithReferenceGenerator sets the generator used to mint group and payment
// references when the caller supplies none.
func WithReferenceGenerator(g *reference.Generator) Option {
	return func(e *Engine) {
		e.refs = g
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("feeledger started", "plugins", e.plugins.Count())
	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Group Management
// ──────────────────────────────────────────────────

// CreateGroup creates a new payment group. When reference is empty a new one
// is minted from the reference generator.
func (e *Engine) CreateGroup(ctx context.Context, groupReference string) (*payment.Group, error) {
	if groupReference == "" {
		groupReference = e.refs.Next()
	}

	g := &payment.Group{
		Entity:    types.NewEntity(),
		ID:        id.NewGroupID(),
		Reference: groupReference,
		Version:   0,
	}

	if err := e.store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	e.plugins.EmitGroupCreated(ctx, g)
	e.logger.Info("payment group created", "group", g.ID.String(), "reference", g.Reference)
	return g, nil
}

// AddFee adds a fee to a payment group. The fee is appended to the group's
// fixed insertion order, which later determines allocation order.
func (e *Engine) AddFee(ctx context.Context, groupReference string, f *fee.Fee) error {
	if f.Code == "" {
		return ValidationError{Field: "code", Message: "fee code is required"}
	}
	if f.CalculatedAmount.Currency == "" {
		return ValidationError{Field: "calculated_amount", Message: "calculated amount requires a currency"}
	}
	if f.CalculatedAmount.IsNegative() {
		return ValidationError{Field: "calculated_amount", Message: "calculated amount must not be negative"}
	}

	g, err := e.store.GetGroupByReference(ctx, groupReference)
	if err != nil {
		return err
	}
	if !f.GroupID.IsNil() && f.GroupID.String() != g.ID.String() {
		return ErrGroupMismatch
	}

	if f.ID.IsNil() {
		f.ID = id.NewFeeID()
	}
	f.Entity = types.NewEntity()
	f.GroupID = g.ID

	if f.Volume <= 0 {
		f.Volume = 1
	}

	// A freshly added fee has everything outstanding.
	cur := f.CalculatedAmount.Currency
	if f.DueAmount.Currency == "" && f.AllocatedAmount.Currency == "" {
		f.DueAmount = f.CalculatedAmount
		f.AllocatedAmount = types.Zero(cur)
	}
	if !f.BalancesConsistent() {
		return ValidationError{Field: "due_amount", Message: "allocated + due must equal calculated"}
	}

	if err := e.store.CreateFee(ctx, f); err != nil {
		return err
	}

	e.logger.Debug("fee added",
		"group", g.ID.String(),
		"fee", f.ID.String(),
		"code", f.Code,
		"calculated", f.CalculatedAmount.String(),
	)
	return nil
}

// RemoveFee soft-removes a fee from its group. Fees referenced by
// apportionment records are never deleted; removal only hides the fee from
// future allocations.
func (e *Engine) RemoveFee(ctx context.Context, feeID id.FeeID) error {
	return e.store.RemoveFee(ctx, feeID)
}

// GetFee retrieves a fee by ID.
func (e *Engine) GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error) {
	return e.store.GetFee(ctx, feeID)
}

// ──────────────────────────────────────────────────
// Payment Management
// ──────────────────────────────────────────────────

// RecordPayment attaches a payment to a group. When the payment reference is
// empty a new one is minted.
func (e *Engine) RecordPayment(ctx context.Context, groupReference string, p *payment.Payment) error {
	if p.Amount.Currency == "" {
		return ValidationError{Field: "amount", Message: "payment amount requires a currency"}
	}
	if p.Amount.IsNegative() {
		return ValidationError{Field: "amount", Message: "payment amount must not be negative"}
	}

	g, err := e.store.GetGroupByReference(ctx, groupReference)
	if err != nil {
		return err
	}

	if p.ID.IsNil() {
		p.ID = id.NewPaymentID()
	}
	p.Entity = types.NewEntity()
	p.GroupID = g.ID
	if p.Reference == "" {
		p.Reference = e.refs.Next()
	}
	if p.Status == "" {
		p.Status = payment.StatusCreated
	}

	if err := e.store.CreatePayment(ctx, p); err != nil {
		return err
	}

	e.plugins.EmitPaymentReceived(ctx, p)
	e.logger.Info("payment recorded",
		"group", g.ID.String(),
		"payment", p.ID.String(),
		"reference", p.Reference,
		"amount", p.Amount.String(),
		"status", string(p.Status),
	)
	return nil
}

// GetPayment retrieves a payment by ID.
func (e *Engine) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	return e.store.GetPayment(ctx, paymentID)
}

// UpdatePaymentStatus transitions a payment's status. A payment that already
// reached a terminal state is immutable.
func (e *Engine) UpdatePaymentStatus(ctx context.Context, paymentID id.PaymentID, status payment.Status) error {
	p, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return ValidationError{Field: "status", Message: fmt.Sprintf("payment is already terminal (%s)", p.Status)}
	}
	return e.store.UpdatePaymentStatus(ctx, paymentID, status)
}

// ──────────────────────────────────────────────────
// Allocation
// ──────────────────────────────────────────────────

// Allocate apportions a successful payment across its group's fees in
// insertion order and commits the resulting ledger records together with the
// updated fee balances.
//
// Allocation is one-shot per payment: if records already exist the prior
// records are returned unchanged and nothing is written, so retried
// triggers are harmless. A conflicting concurrent writer surfaces as
// ErrConcurrentModification; the whole operation is safe to retry.
func (e *Engine) Allocate(ctx context.Context, paymentID id.PaymentID) ([]*apportion.Record, error) {
	p, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.Status.Successful() {
		return nil, ErrPaymentNotSuccessful
	}

	// Idempotency: a payment that already has records was allocated before.
	existing, err := e.store.ListPaymentRecords(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		e.logger.Debug("payment already allocated", "payment", p.ID.String(), "records", len(existing))
		return existing, nil
	}

	g, err := e.store.GetGroup(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}

	fees, err := e.store.ListGroupFees(ctx, g.ID, fee.ListOpts{})
	if err != nil {
		return nil, err
	}
	if len(fees) == 0 {
		return nil, ErrNoFeesInGroup
	}
	for _, f := range fees {
		if cur := f.Currency(); cur != "" && cur != p.Amount.Currency {
			return nil, fmt.Errorf("%w: fee %s is %s, payment is %s", ErrCurrencyMixed, f.ID.String(), cur, p.Amount.Currency)
		}
	}

	now := time.Now().UTC()
	splits, err := apportion.Allocate(p.Amount, fees, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if len(splits) == 0 {
		return nil, nil
	}

	records := make([]*apportion.Record, len(splits))
	touched := make([]*fee.Fee, len(splits))
	surplus := types.Zero(p.Amount.Currency)
	for i, sp := range splits {
		records[i] = &apportion.Record{
			Entity:            types.NewEntity(),
			ID:                id.NewRecordID(),
			PaymentID:         p.ID,
			FeeID:             sp.Fee.ID,
			ApportionedAmount: sp.ApportionedAmount,
			SurplusAmount:     sp.SurplusAmount,
			Kind:              apportion.KindAllocation,
		}
		touched[i] = sp.Fee
		surplus = surplus.Add(sp.SurplusAmount)
	}

	if err := e.store.CommitAllocation(ctx, g.ID, g.Version, touched, records); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			e.plugins.EmitAllocationConflict(ctx, g.ID.String())
		}
		return nil, err
	}

	e.plugins.EmitPaymentAllocated(ctx, p, len(records))
	if surplus.IsPositive() {
		e.plugins.EmitSurplusRecorded(ctx, p.ID.String(), surplus)
	}

	e.logger.Info("payment allocated",
		"payment", p.ID.String(),
		"group", g.ID.String(),
		"records", len(records),
		"surplus", surplus.String(),
	)
	return records, nil
}

// ──────────────────────────────────────────────────
// Readjustment
// ──────────────────────────────────────────────────

// Readjust applies a refund against an already-allocated fee: allocated and
// calculated amounts shrink by the refund, the due amount is recomputed, and
// a negative reversal record is appended so prior ledger entries stay intact.
//
// A refund larger than the fee's currently allocated amount fails with
// ErrRefundExceedsAllocated and leaves state unchanged. When newVolume is
// positive the fee's volume is updated as well; zero or negative leaves the
// recorded volume untouched. Other fees in the group are never rebalanced.
func (e *Engine) Readjust(ctx context.Context, feeID id.FeeID, refund types.Money, newVolume int64) (*apportion.Record, error) {
	if refund.Currency == "" {
		return nil, ValidationError{Field: "refund", Message: "refund amount requires a currency"}
	}
	if !refund.IsPositive() {
		return nil, ValidationError{Field: "refund", Message: "refund amount must be positive"}
	}

	f, err := e.store.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}

	g, err := e.store.GetGroup(ctx, f.GroupID)
	if err != nil {
		return nil, err
	}

	// Version before balances: the fee is re-read after the group so a
	// commit landing between the two reads fails the version check at
	// commit time instead of being overwritten with stale balances.
	f, err = e.store.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if f.Removed {
		return nil, ErrFeeRemoved
	}
	if cur := f.Currency(); cur != "" && cur != refund.Currency {
		return nil, ValidationError{Field: "refund", Message: fmt.Sprintf("currency %q does not match fee currency %q", refund.Currency, cur)}
	}

	allocated := types.Zero(refund.Currency).AddAssuming(f.AllocatedAmount, refund.Currency)
	if refund.GreaterThan(allocated) {
		return nil, ErrRefundExceedsAllocated
	}

	calculated := types.Zero(refund.Currency).AddAssuming(f.CalculatedAmount, refund.Currency)

	f.AllocatedAmount = allocated.Subtract(refund)
	f.CalculatedAmount = calculated.Subtract(refund)
	f.DueAmount = f.CalculatedAmount.Subtract(f.AllocatedAmount)
	if newVolume > 0 {
		f.Volume = newVolume
	}
	now := time.Now().UTC()
	f.DateApportioned = &now
	f.Touch()

	rec := &apportion.Record{
		Entity:            types.NewEntity(),
		ID:                id.NewRecordID(),
		PaymentID:         id.Nil,
		FeeID:             f.ID,
		ApportionedAmount: refund.Negate(),
		SurplusAmount:     types.Zero(refund.Currency),
		Kind:              apportion.KindReversal,
	}

	if err := e.store.CommitReadjustment(ctx, g.ID, g.Version, f, rec); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			e.plugins.EmitAllocationConflict(ctx, g.ID.String())
		}
		return nil, err
	}

	e.plugins.EmitFeeReadjusted(ctx, f, rec)
	e.logger.Info("fee readjusted",
		"fee", f.ID.String(),
		"group", g.ID.String(),
		"refund", refund.String(),
		"allocated", f.AllocatedAmount.String(),
		"calculated", f.CalculatedAmount.String(),
	)
	return rec, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GroupState is a fully hydrated payment group snapshot for read-side
// consumers: the group with its fees, payments and full ledger history.
type GroupState struct {
	Group    *payment.Group      `json:"group"`
	Fees     []*fee.Fee          `json:"fees"`
	Payments []*payment.Payment  `json:"payments"`
	Records  []*apportion.Record `json:"records"`
}

// LedgerState returns the hydrated payment group for a group reference,
// including soft-removed fees and all apportionment records.
func (e *Engine) LedgerState(ctx context.Context, groupReference string) (*GroupState, error) {
	g, err := e.store.GetGroupByReference(ctx, groupReference)
	if err != nil {
		return nil, err
	}

	fees, err := e.store.ListGroupFees(ctx, g.ID, fee.ListOpts{IncludeRemoved: true})
	if err != nil {
		return nil, err
	}

	payments, err := e.store.ListGroupPayments(ctx, g.ID, payment.ListOpts{})
	if err != nil {
		return nil, err
	}

	records := make([]*apportion.Record, 0)
	for _, f := range fees {
		recs, err := e.store.ListFeeRecords(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	return &GroupState{
		Group:    g,
		Fees:     fees,
		Payments: payments,
		Records:  records,
	}, nil
}

// ReconciliationRows builds the grouped rows for the external financial
// pull. The externally-facing allocated amount of each fee is the fold of
// its ledger records (apportioned + surplus, reversals included) so the
// extraction sees the full payment value attached to the fee, not just the
// due-covering portion.
func (e *Engine) ReconciliationRows(ctx context.Context, groupReference string) ([]reconcile.Row, error) {
	g, err := e.store.GetGroupByReference(ctx, groupReference)
	if err != nil {
		return nil, err
	}

	fees, err := e.store.ListGroupFees(ctx, g.ID, fee.ListOpts{})
	if err != nil {
		return nil, err
	}

	for _, f := range fees {
		recs, err := e.store.ListFeeRecords(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		cur := f.Currency()
		if cur == "" {
			cur = "gbp"
		}
		total := types.Zero(cur)
		for _, r := range recs {
			total = total.AddAssuming(r.ApportionedAmount, cur).AddAssuming(r.SurplusAmount, cur)
		}
		f.AllocatedAmount = total
	}

	rows := reconcile.Aggregate(fees)

	e.plugins.EmitReconciliationPulled(ctx, g.Reference, len(rows))
	e.logger.Debug("reconciliation rows produced", "group", g.ID.String(), "rows", len(rows))
	return rows, nil
}
