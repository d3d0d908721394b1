// Package transaction models the append-only stock ledger. Entries are
// immutable once created; no store exposes update or delete.
package transaction

import (
	"time"

	"github.com/xraph/stockledger/id"
)

// Type is the kind of stock-affecting event an entry records.
type Type string

const (
	TypeIn         Type = "IN"
	TypeOut        Type = "OUT"
	TypeAdjustment Type = "ADJUSTMENT"
	TypeReserved   Type = "RESERVED"
	TypeReleased   Type = "RELEASED"
)

// Valid reports whether t is one of the known entry types.
func (t Type) Valid() bool {
	switch t {
	case TypeIn, TypeOut, TypeAdjustment, TypeReserved, TypeReleased:
		return true
	}
	return false
}

// Transaction is one immutable fact about a stock change.
//
// Quantity is a magnitude for every type except ADJUSTMENT, where it is the
// signed delta. ReservedConsumed is the part of an OUT quantity that was drawn
// from reservations (fulfilment); it is zero for every other entry.
//
// Sequence is the SKU version the entry produced. It is strictly increasing
// per SKU and is the replay order; CreatedAt may tie.
type Transaction struct {
	ID               id.TransactionID `json:"id"`
	SKUID            id.SKUID         `json:"sku_id"`
	Sequence         int64            `json:"sequence"`
	Type             Type             `json:"type"`
	Quantity         int64            `json:"quantity"`
	ReservedConsumed int64            `json:"reserved_consumed,omitempty"`
	ReferenceID      string           `json:"reference_id,omitempty"`
	ReferenceType    string           `json:"reference_type,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	PerformedBy      string           `json:"performed_by"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Details holds the optional descriptive fields of an entry.
type Details struct {
	ReferenceID   string
	ReferenceType string
	Reason        string
	PerformedBy   string
}

// New creates a ledger entry stamped with a fresh ID and the given time.
func New(skuID id.SKUID, typ Type, quantity int64, d Details, at time.Time) *Transaction {
	return &Transaction{
		ID:            id.NewTransactionID(),
		SKUID:         skuID,
		Type:          typ,
		Quantity:      quantity,
		ReferenceID:   d.ReferenceID,
		ReferenceType: d.ReferenceType,
		Reason:        d.Reason,
		PerformedBy:   d.PerformedBy,
		CreatedAt:     at.UTC(),
	}
}

// IsStockIncrease is true for IN, or ADJUSTMENT with a positive quantity.
func (t *Transaction) IsStockIncrease() bool {
	return t.Type == TypeIn || (t.Type == TypeAdjustment && t.Quantity > 0)
}

// IsStockDecrease is true for OUT, or ADJUSTMENT with a negative quantity.
func (t *Transaction) IsStockDecrease() bool {
	return t.Type == TypeOut || (t.Type == TypeAdjustment && t.Quantity < 0)
}

// StockDelta is the signed change this entry requests on stock, before clamping.
func (t *Transaction) StockDelta() int64 {
	switch t.Type {
	case TypeIn, TypeAdjustment:
		return t.Quantity
	case TypeOut:
		return -t.Quantity
	default:
		return 0
	}
}

// ReservedDelta is the signed change this entry made to reserved.
func (t *Transaction) ReservedDelta() int64 {
	switch t.Type {
	case TypeReserved:
		return t.Quantity
	case TypeReleased:
		return -t.Quantity
	case TypeOut:
		return -t.ReservedConsumed
	default:
		return 0
	}
}
