package sku

import (
	"context"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/types"
)

// Store persists SKU aggregates. Lookups never return soft-deleted rows.
type Store interface {
	CreateSKU(ctx context.Context, s *SKU) error
	GetSKU(ctx context.Context, skuID id.SKUID) (*SKU, error)
	GetSKUByCode(ctx context.Context, code string) (*SKU, error)
	// UpdateSKU writes s only if the stored version still equals s.Version,
	// then increments s.Version. A mismatch is a version conflict.
	UpdateSKU(ctx context.Context, s *SKU) error
	ListSKUs(ctx context.Context, opts ListOpts) ([]*SKU, error)
}

// Condition selects SKUs by stock level.
type Condition string

const (
	ConditionAny        Condition = ""
	ConditionLowStock   Condition = "low_stock"
	ConditionOutOfStock Condition = "out_of_stock"
)

// ListOpts filters SKU listings. Results are ordered by code.
type ListOpts struct {
	types.ListOpts
	Condition  Condition
	ActiveOnly bool
}

// Matches reports whether s satisfies the filter (ignoring pagination).
func (o ListOpts) Matches(s *SKU) bool {
	if s.IsDeleted() {
		return false
	}
	if o.ActiveOnly && !s.Active {
		return false
	}
	switch o.Condition {
	case ConditionLowStock:
		return s.IsLowOnStock()
	case ConditionOutOfStock:
		return s.IsOutOfStock()
	default:
		return true
	}
}
