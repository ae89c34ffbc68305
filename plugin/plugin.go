// Package plugin provides an extensible plugin system for Feeledger.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Group lifecycle hooks
// ──────────────────────────────────────────────────

// OnGroupCreated is called when a new payment group is created.
type OnGroupCreated interface {
	Plugin
	OnGroupCreated(ctx context.Context, group interface{}) error
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentReceived is called when a payment is recorded against a group.
type OnPaymentReceived interface {
	Plugin
	OnPaymentReceived(ctx context.Context, payment interface{}) error
}

// OnPaymentAllocated is called after a payment has been apportioned across
// its group's fees and the records committed.
type OnPaymentAllocated interface {
	Plugin
	OnPaymentAllocated(ctx context.Context, payment interface{}, recordCount int) error
}

// OnSurplusRecorded is called when an allocation attributes surplus value,
// i.e. the payment exceeded the group's total outstanding due.
type OnSurplusRecorded interface {
	Plugin
	OnSurplusRecorded(ctx context.Context, paymentID string, surplus interface{}) error
}

// ──────────────────────────────────────────────────
// Readjustment hooks
// ──────────────────────────────────────────────────

// OnFeeReadjusted is called after a refund readjustment committed a reversal
// record against a fee.
type OnFeeReadjusted interface {
	Plugin
	OnFeeReadjusted(ctx context.Context, fee interface{}, record interface{}) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciliationPulled is called when reconciliation rows are produced for
// an external financial pull.
type OnReconciliationPulled interface {
	Plugin
	OnReconciliationPulled(ctx context.Context, groupReference string, rowCount int) error
}

// ──────────────────────────────────────────────────
// Concurrency hooks
// ──────────────────────────────────────────────────

// OnAllocationConflict is called when a commit loses the group-version race
// against a concurrent writer. The operation is safe to retry.
type OnAllocationConflict interface {
	Plugin
	OnAllocationConflict(ctx context.Context, groupID string) error
}
