// Package observability provides a metrics extension for Feeledger that
// records lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/feeledger/payment"
	"github.com/xraph/feeledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnGroupCreated         = (*MetricsExtension)(nil)
	_ plugin.OnPaymentReceived      = (*MetricsExtension)(nil)
	_ plugin.OnPaymentAllocated     = (*MetricsExtension)(nil)
	_ plugin.OnSurplusRecorded      = (*MetricsExtension)(nil)
	_ plugin.OnFeeReadjusted        = (*MetricsExtension)(nil)
	_ plugin.OnReconciliationPulled = (*MetricsExtension)(nil)
	_ plugin.OnAllocationConflict   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Feeledger plugin to automatically track ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Group metrics
	GroupCreated Counter

	// Payment metrics
	PaymentReceived Counter
	PaymentAmount   Histogram

	// Allocation metrics
	PaymentsAllocated     Counter
	AllocationRecordCount Histogram
	SurplusRecorded       Counter
	AllocationConflicts   Counter

	// Readjustment metrics
	FeesReadjusted Counter

	// Reconciliation metrics
	ReconciliationPulls    Counter
	ReconciliationRowCount Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Group metrics
		GroupCreated: factory.Counter("feeledger.group.created"),

		// Payment metrics
		PaymentReceived: factory.Counter("feeledger.payment.received"),
		PaymentAmount:   factory.Histogram("feeledger.payment.amount_cents"),

		// Allocation metrics
		PaymentsAllocated:     factory.Counter("feeledger.payment.allocated"),
		AllocationRecordCount: factory.Histogram("feeledger.allocation.record_count"),
		SurplusRecorded:       factory.Counter("feeledger.allocation.surplus"),
		AllocationConflicts:   factory.Counter("feeledger.allocation.conflicts"),

		// Readjustment metrics
		FeesReadjusted: factory.Counter("feeledger.fee.readjusted"),

		// Reconciliation metrics
		ReconciliationPulls:    factory.Counter("feeledger.reconciliation.pulls"),
		ReconciliationRowCount: factory.Histogram("feeledger.reconciliation.row_count"),

		// Error metrics
		StoreErrors:  factory.Counter("feeledger.store.errors"),
		PluginErrors: factory.Counter("feeledger.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Group lifecycle hooks
// ──────────────────────────────────────────────────

// OnGroupCreated implements plugin.OnGroupCreated.
func (m *MetricsExtension) OnGroupCreated(_ context.Context, _ interface{}) error {
	m.GroupCreated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentReceived implements plugin.OnPaymentReceived.
func (m *MetricsExtension) OnPaymentReceived(_ context.Context, p interface{}) error {
	m.PaymentReceived.Inc()
	if pay, ok := p.(*payment.Payment); ok {
		m.PaymentAmount.Observe(float64(pay.Amount.Amount))
	}
	return nil
}

// OnPaymentAllocated implements plugin.OnPaymentAllocated.
func (m *MetricsExtension) OnPaymentAllocated(_ context.Context, _ interface{}, recordCount int) error {
	m.PaymentsAllocated.Inc()
	m.AllocationRecordCount.Observe(float64(recordCount))
	return nil
}

// OnSurplusRecorded implements plugin.OnSurplusRecorded.
func (m *MetricsExtension) OnSurplusRecorded(_ context.Context, _ string, _ interface{}) error {
	m.SurplusRecorded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Readjustment hooks
// ──────────────────────────────────────────────────

// OnFeeReadjusted implements plugin.OnFeeReadjusted.
func (m *MetricsExtension) OnFeeReadjusted(_ context.Context, _ interface{}, _ interface{}) error {
	m.FeesReadjusted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciliationPulled implements plugin.OnReconciliationPulled.
func (m *MetricsExtension) OnReconciliationPulled(_ context.Context, _ string, rowCount int) error {
	m.ReconciliationPulls.Inc()
	m.ReconciliationRowCount.Observe(float64(rowCount))
	return nil
}

// ──────────────────────────────────────────────────
// Concurrency hooks
// ──────────────────────────────────────────────────

// OnAllocationConflict implements plugin.OnAllocationConflict.
func (m *MetricsExtension) OnAllocationConflict(_ context.Context, _ string) error {
	m.AllocationConflicts.Inc()
	return nil
}
