package store

import (
	"context"

	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
)

// Store is the unified storage interface for all Feeledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// CommitAllocation and CommitReadjustment are the only ways fee balances
// change or records are appended. Both take the payment group version the
// caller read its state under; a store must reject the commit with
// feeledger.ErrConcurrentModification when the stored version differs, and
// must apply balance updates and record inserts all-or-nothing.
type Store interface {
	// Group methods
	CreateGroup(ctx context.Context, g *payment.Group) error
	GetGroup(ctx context.Context, groupID id.GroupID) (*payment.Group, error)
	GetGroupByReference(ctx context.Context, reference string) (*payment.Group, error)

	// Fee methods
	CreateFee(ctx context.Context, f *fee.Fee) error
	GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error)
	ListGroupFees(ctx context.Context, groupID id.GroupID, opts fee.ListOpts) ([]*fee.Fee, error)
	RemoveFee(ctx context.Context, feeID id.FeeID) error

	// Payment methods
	CreatePayment(ctx context.Context, p *payment.Payment) error
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*payment.Payment, error)
	ListGroupPayments(ctx context.Context, groupID id.GroupID, opts payment.ListOpts) ([]*payment.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID id.PaymentID, status payment.Status) error

	// Apportionment record methods (append-only; writes go through commits)
	ListPaymentRecords(ctx context.Context, paymentID id.PaymentID) ([]*apportion.Record, error)
	ListFeeRecords(ctx context.Context, feeID id.FeeID) ([]*apportion.Record, error)

	// Ledger commits (group-scoped optimistic concurrency)
	CommitAllocation(ctx context.Context, groupID id.GroupID, expectedVersion int64, fees []*fee.Fee, records []*apportion.Record) error
	CommitReadjustment(ctx context.Context, groupID id.GroupID, expectedVersion int64, f *fee.Fee, record *apportion.Record) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
