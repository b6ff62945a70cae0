package audithook

// Action constants for audit events.
const (
	// Token registry actions
	ActionTokenRegistered   = "token.registered"
	ActionTokenUnregistered = "token.unregistered"

	// Balance actions
	ActionBalanceCredited = "balance.credited"
	ActionBalanceDebited  = "balance.debited"

	// Disbursement actions
	ActionDisbursementRecorded = "disbursement.recorded"
	ActionLimitExceeded        = "limit.exceeded"
	ActionCapsUpdated          = "caps.updated"

	// Revenue actions
	ActionRevenueSplit = "revenue.split"
)

// Resource constants for audit events.
const (
	ResourceToken        = "token"
	ResourceBalance      = "balance"
	ResourceDisbursement = "disbursement"
	ResourceCaps         = "caps"
	ResourceRevenue      = "revenue"
)

// Category constants for audit events.
const (
	CategoryRegistry = "registry"
	CategoryLedger   = "ledger"
	CategoryLimits   = "limits"
	CategoryRevenue  = "revenue"
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
