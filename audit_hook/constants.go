package audithook

// Action constants for audit events.
const (
	// SKU actions
	ActionSKUCreated     = "sku.created"
	ActionSKUActivated   = "sku.activated"
	ActionSKUDeactivated = "sku.deactivated"
	ActionSKUDeleted     = "sku.deleted"

	// Stock movement actions
	ActionStockIn         = "stock.in"
	ActionStockOut        = "stock.out"
	ActionStockAdjusted   = "stock.adjusted"
	ActionStockReserved   = "stock.reserved"
	ActionStockReleased   = "stock.released"
	ActionStockFulfilled  = "stock.fulfilled"
	ActionStockShortage   = "stock.shortage"
	ActionStockLow        = "stock.low"
	ActionVersionConflict = "concurrency.version_conflict"
)

// Resource constants for audit events.
const (
	ResourceSKU         = "sku"
	ResourceTransaction = "stock_transaction"
)

// Category constants for audit events.
const (
	CategoryCatalog     = "catalog"
	CategoryInventory   = "inventory"
	CategoryAllocation  = "allocation"
	CategoryConcurrency = "concurrency"
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
)
