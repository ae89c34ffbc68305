package payment

import (
	"context"

	"github.com/xraph/feeledger/id"
)

// GroupStore is the payment-group slice of the unified store interface.
type GroupStore interface {
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, groupID id.GroupID) (*Group, error)
	GetGroupByReference(ctx context.Context, reference string) (*Group, error)
}

// Store is the payment slice of the unified store interface.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, paymentID id.PaymentID) (*Payment, error)
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	ListByGroup(ctx context.Context, groupID id.GroupID, opts ListOpts) ([]*Payment, error)
	UpdateStatus(ctx context.Context, paymentID id.PaymentID, status Status) error
}

// ListOpts filters payment listings.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
