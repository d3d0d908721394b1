// Package product holds the parent entity a SKU belongs to. Only the state the
// stock ledger consults is modelled here; product CRUD lives elsewhere.
package product

import (
	"context"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/types"
)

type Product struct {
	types.Entity
	ID     id.ProductID `json:"id"`
	Name   string       `json:"name"`
	Active bool         `json:"active"`
}

// Store looks up parent product state.
type Store interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, productID id.ProductID) (*Product, error)
}
