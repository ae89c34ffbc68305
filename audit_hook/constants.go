package audithook

// Action constants for audit events.
const (
	// Group actions
	ActionGroupCreated = "group.created"

	// Payment actions
	ActionPaymentReceived  = "payment.received"
	ActionPaymentAllocated = "payment.allocated"
	ActionSurplusRecorded  = "surplus.recorded"

	// Readjustment actions
	ActionFeeReadjusted = "fee.readjusted"

	// Reconciliation actions
	ActionReconciliationPulled = "reconciliation.pulled"

	// Concurrency actions
	ActionAllocationConflict = "allocation.conflict"
)

// Resource constants for audit events.
const (
	ResourceGroup          = "payment_group"
	ResourcePayment        = "payment"
	ResourceFee            = "fee"
	ResourceReconciliation = "reconciliation"
)

// Category constants for audit events.
const (
	CategoryLedger         = "ledger"
	CategoryPayment        = "payment"
	CategoryReconciliation = "reconciliation"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
