package stockledger

import "github.com/xraph/stockledger/id"

// ID is the primary identifier type for all stock ledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// Typed aliases for the entities the ledger manages.
type (
	SKUID         = id.SKUID
	ProductID     = id.ProductID
	TransactionID = id.TransactionID
)

// ParseSKUID parses a SKU ID string.
var ParseSKUID = id.ParseSKUID
