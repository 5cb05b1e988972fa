package audithook

// Action constants for audit events.
const (
	// Member actions
	ActionMemberCreated     = "member.created"
	ActionMemberReactivated = "member.reactivated"

	// Fee actions
	ActionFeeCreated    = "fee.created"
	ActionFeePaid       = "fee.paid"
	ActionFeeRolledOver = "fee.rolled_over"
	ActionFeesRepriced  = "fees.repriced"

	// Reconciliation actions
	ActionDriftRepaired   = "drift.repaired"
	ActionStatusRefreshed = "status.refreshed"

	// Settings and expense actions
	ActionSettingsUpdated = "settings.updated"
	ActionExpenseRecorded = "expense.recorded"
)

// Resource constants for audit events.
const (
	ResourceMember   = "member"
	ResourceFee      = "fee"
	ResourceSettings = "settings"
	ResourceExpense  = "expense"
)

// Category constants for audit events.
const (
	CategoryMembership     = "membership"
	CategoryBilling        = "billing"
	CategoryReconciliation = "reconciliation"
	CategoryFinance        = "finance"
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
