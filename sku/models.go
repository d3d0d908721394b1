// Package sku holds the per-SKU stock aggregate and its invariant-preserving
// mutators. The aggregate never writes ledger entries itself.
package sku

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/types"
)

// ErrInvalidQuantity is returned by mutators given a non-positive quantity.
var ErrInvalidQuantity = errors.New("sku: quantity must be positive")

// ShortageError reports a mutation that needed more units than the limiting
// quantity currently holds.
type ShortageError struct {
	Requested int64
	Have      int64
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("sku: requested %d, have %d", e.Requested, e.Have)
}

// SKU is a stock keeping unit with its quantity state.
//
// Available is always derived from Stock and Reserved; there is no stored
// copy that could drift.
type SKU struct {
	types.Entity
	ID              id.SKUID        `json:"id"`
	Code            string          `json:"code"`
	ProductID       id.ProductID    `json:"product_id"`
	Price           decimal.Decimal `json:"price"`
	Cost            decimal.Decimal `json:"cost"`
	Stock           int64           `json:"stock"`
	Reserved        int64           `json:"reserved"`
	ReorderPoint    int64           `json:"reorder_point"`
	ReorderQuantity int64           `json:"reorder_quantity"`
	Active          bool            `json:"active"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	Version         int64           `json:"version"`
}

// Available returns max(0, Stock-Reserved).
func (s *SKU) Available() int64 {
	return max(0, s.Stock-s.Reserved)
}

// IsLowOnStock reports whether stock is at or below the reorder point.
func (s *SKU) IsLowOnStock() bool { return s.Stock <= s.ReorderPoint }

// IsOutOfStock reports whether no units are on hand.
func (s *SKU) IsOutOfStock() bool { return s.Stock == 0 }

// HasAvailableStock reports whether any unit can still be reserved.
func (s *SKU) HasAvailableStock() bool { return s.Available() > 0 }

// IsDeleted reports whether the SKU has been soft-deleted.
func (s *SKU) IsDeleted() bool { return s.DeletedAt != nil }

// Adjust applies delta to stock, clamping at zero, and returns the new stock.
func (s *SKU) Adjust(delta int64) int64 {
	s.Stock = max(0, s.Stock+delta)
	return s.Stock
}

// Reserve allocates qty units of available stock.
// It fails with a *ShortageError carrying the current available amount.
func (s *SKU) Reserve(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if avail := s.Available(); avail < qty {
		return &ShortageError{Requested: qty, Have: avail}
	}
	s.Reserved += qty
	return nil
}

// Release frees up to qty reserved units and returns how many were freed.
// Asking for more than is reserved releases everything; it is not an error.
func (s *SKU) Release(qty int64) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	actual := min(qty, s.Reserved)
	s.Reserved -= actual
	return actual, nil
}

// Fulfill ships qty reserved units, decrementing both reserved and stock.
// Stock still clamps at zero when earlier stock-outs left it below reserved.
// It fails with a *ShortageError carrying the current reserved amount and
// leaves both fields untouched.
func (s *SKU) Fulfill(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Reserved < qty {
		return &ShortageError{Requested: qty, Have: s.Reserved}
	}
	s.Reserved -= qty
	s.Stock = max(0, s.Stock-qty)
	return nil
}

// Clone returns a deep copy of s.
func (s *SKU) Clone() *SKU {
	c := *s
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
