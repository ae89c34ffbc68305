package fee

import (
	"context"

	"github.com/xraph/feeledger/id"
)

// Store is the fee slice of the unified store interface.
type Store interface {
	Create(ctx context.Context, f *Fee) error
	Get(ctx context.Context, feeID id.FeeID) (*Fee, error)
	ListByGroup(ctx context.Context, groupID id.GroupID, opts ListOpts) ([]*Fee, error)
	UpdateBalances(ctx context.Context, f *Fee) error
	Remove(ctx context.Context, feeID id.FeeID) error
}

// ListOpts filters fee listings. Fees are always returned in insertion
// order (creation time ascending) because allocation order depends on it.
type ListOpts struct {
	IncludeRemoved bool
	Limit          int
	Offset         int
}
