package apportion

import (
	"context"

	"github.com/xraph/feeledger/id"
)

// Store is the apportionment-record slice of the unified store interface.
// Records are append-only; there is no update method.
type Store interface {
	CreateRecords(ctx context.Context, records []*Record) error
	ListByPayment(ctx context.Context, paymentID id.PaymentID) ([]*Record, error)
	ListByFee(ctx context.Context, feeID id.FeeID) ([]*Record, error)
}
