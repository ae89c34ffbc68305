// Package audithook bridges Feeledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/payment"
	"github.com/xraph/feeledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnGroupCreated         = (*Extension)(nil)
	_ plugin.OnPaymentReceived      = (*Extension)(nil)
	_ plugin.OnPaymentAllocated     = (*Extension)(nil)
	_ plugin.OnSurplusRecorded      = (*Extension)(nil)
	_ plugin.OnFeeReadjusted        = (*Extension)(nil)
	_ plugin.OnReconciliationPulled = (*Extension)(nil)
	_ plugin.OnAllocationConflict   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Feeledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Group lifecycle hooks
// ──────────────────────────────────────────────────

// OnGroupCreated implements plugin.OnGroupCreated.
func (e *Extension) OnGroupCreated(ctx context.Context, group interface{}) error {
	var groupID, reference string
	if g, ok := group.(*payment.Group); ok {
		groupID = g.ID.String()
		reference = g.Reference
	}
	return e.record(ctx, ActionGroupCreated, SeverityInfo, OutcomeSuccess,
		ResourceGroup, groupID, CategoryLedger, nil,
		"reference", reference,
	)
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentReceived implements plugin.OnPaymentReceived.
func (e *Extension) OnPaymentReceived(ctx context.Context, p interface{}) error {
	var paymentID, amount, status string
	if pay, ok := p.(*payment.Payment); ok {
		paymentID = pay.ID.String()
		amount = pay.Amount.String()
		status = string(pay.Status)
	}
	return e.record(ctx, ActionPaymentReceived, SeverityInfo, OutcomeSuccess,
		ResourcePayment, paymentID, CategoryPayment, nil,
		"amount", amount,
		"status", status,
	)
}

// OnPaymentAllocated implements plugin.OnPaymentAllocated.
func (e *Extension) OnPaymentAllocated(ctx context.Context, p interface{}, recordCount int) error {
	var paymentID string
	if pay, ok := p.(*payment.Payment); ok {
		paymentID = pay.ID.String()
	}
	return e.record(ctx, ActionPaymentAllocated, SeverityInfo, OutcomeSuccess,
		ResourcePayment, paymentID, CategoryPayment, nil,
		"record_count", recordCount,
	)
}

// OnSurplusRecorded implements plugin.OnSurplusRecorded.
func (e *Extension) OnSurplusRecorded(ctx context.Context, paymentID string, surplus interface{}) error {
	return e.record(ctx, ActionSurplusRecorded, SeverityWarning, OutcomeSuccess,
		ResourcePayment, paymentID, CategoryPayment, nil,
		"surplus", fmt.Sprintf("%v", surplus),
	)
}

// ──────────────────────────────────────────────────
// Readjustment hooks
// ──────────────────────────────────────────────────

// OnFeeReadjusted implements plugin.OnFeeReadjusted.
func (e *Extension) OnFeeReadjusted(ctx context.Context, f interface{}, record interface{}) error {
	var feeID, refund string
	if adjusted, ok := f.(*fee.Fee); ok {
		feeID = adjusted.ID.String()
	}
	if rec, ok := record.(*apportion.Record); ok {
		refund = rec.ApportionedAmount.Abs().String()
	}
	return e.record(ctx, ActionFeeReadjusted, SeverityWarning, OutcomeSuccess,
		ResourceFee, feeID, CategoryLedger, nil,
		"refund", refund,
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciliationPulled implements plugin.OnReconciliationPulled.
func (e *Extension) OnReconciliationPulled(ctx context.Context, groupReference string, rowCount int) error {
	return e.record(ctx, ActionReconciliationPulled, SeverityInfo, OutcomeSuccess,
		ResourceReconciliation, groupReference, CategoryReconciliation, nil,
		"row_count", rowCount,
	)
}

// ──────────────────────────────────────────────────
// Concurrency hooks
// ──────────────────────────────────────────────────

// OnAllocationConflict implements plugin.OnAllocationConflict.
func (e *Extension) OnAllocationConflict(ctx context.Context, groupID string) error {
	return e.record(ctx, ActionAllocationConflict, SeverityWarning, OutcomeFailure,
		ResourceGroup, groupID, CategoryLedger, nil,
		"event", "allocation_conflict",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
