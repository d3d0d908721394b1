package stockledger

import (
	"github.com/xraph/stockledger/transaction"
	"github.com/xraph/stockledger/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// ListOpts is re-exported from types package.
type ListOpts = types.ListOpts

// TransactionType is re-exported from transaction package.
type TransactionType = transaction.Type

// Re-export transaction types
const (
	TypeIn         = transaction.TypeIn
	TypeOut        = transaction.TypeOut
	TypeAdjustment = transaction.TypeAdjustment
	TypeReserved   = transaction.TypeReserved
	TypeReleased   = transaction.TypeReleased
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
