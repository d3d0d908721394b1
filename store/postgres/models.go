package postgres

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
	"github.com/xraph/stockledger/types"
)

// ==================== SKU models ====================

type skuModel struct {
	grove.BaseModel `grove:"table:stockledger_skus"`

	ID              string          `grove:"id,pk"`
	Code            string          `grove:"code"`
	ProductID       string          `grove:"product_id"`
	Price           decimal.Decimal `grove:"price"`
	Cost            decimal.Decimal `grove:"cost"`
	Stock           int64           `grove:"stock"`
	Reserved        int64           `grove:"reserved"`
	ReorderPoint    int64           `grove:"reorder_point"`
	ReorderQuantity int64           `grove:"reorder_quantity"`
	Active          bool            `grove:"active"`
	DeletedAt       *time.Time      `grove:"deleted_at"`
	Version         int64           `grove:"version"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toSKUModel(k *sku.SKU) *skuModel {
	return &skuModel{
		ID:              k.ID.String(),
		Code:            k.Code,
		ProductID:       k.ProductID.String(),
		Price:           k.Price,
		Cost:            k.Cost,
		Stock:           k.Stock,
		Reserved:        k.Reserved,
		ReorderPoint:    k.ReorderPoint,
		ReorderQuantity: k.ReorderQuantity,
		Active:          k.Active,
		DeletedAt:       k.DeletedAt,
		Version:         k.Version,
		CreatedAt:       k.CreatedAt,
		UpdatedAt:       k.UpdatedAt,
	}
}

func fromSKUModel(m *skuModel) (*sku.SKU, error) {
	skuID, err := id.ParseSKUID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse sku id: %w", err)
	}
	productID, err := id.ParseProductID(m.ProductID)
	if err != nil {
		return nil, fmt.Errorf("parse product id: %w", err)
	}

	var deletedAt *time.Time
	if m.DeletedAt != nil {
		t := m.DeletedAt.UTC()
		deletedAt = &t
	}

	return &sku.SKU{
		Entity:          types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:              skuID,
		Code:            m.Code,
		ProductID:       productID,
		Price:           m.Price,
		Cost:            m.Cost,
		Stock:           m.Stock,
		Reserved:        m.Reserved,
		ReorderPoint:    m.ReorderPoint,
		ReorderQuantity: m.ReorderQuantity,
		Active:          m.Active,
		DeletedAt:       deletedAt,
		Version:         m.Version,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:stockledger_transactions"`

	ID               string    `grove:"id,pk"`
	SKUID            string    `grove:"sku_id"`
	Sequence         int64     `grove:"sequence"`
	Type             string    `grove:"type"`
	Quantity         int64     `grove:"quantity"`
	ReservedConsumed int64     `grove:"reserved_consumed"`
	ReferenceID      string    `grove:"reference_id"`
	ReferenceType    string    `grove:"reference_type"`
	Reason           string    `grove:"reason"`
	PerformedBy      string    `grove:"performed_by"`
	CreatedAt        time.Time `grove:"created_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:               t.ID.String(),
		SKUID:            t.SKUID.String(),
		Sequence:         t.Sequence,
		Type:             string(t.Type),
		Quantity:         t.Quantity,
		ReservedConsumed: t.ReservedConsumed,
		ReferenceID:      t.ReferenceID,
		ReferenceType:    t.ReferenceType,
		Reason:           t.Reason,
		PerformedBy:      t.PerformedBy,
		CreatedAt:        t.CreatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id: %w", err)
	}
	skuID, err := id.ParseSKUID(m.SKUID)
	if err != nil {
		return nil, fmt.Errorf("parse sku id: %w", err)
	}

	return &transaction.Transaction{
		ID:               txID,
		SKUID:            skuID,
		Sequence:         m.Sequence,
		Type:             transaction.Type(m.Type),
		Quantity:         m.Quantity,
		ReservedConsumed: m.ReservedConsumed,
		ReferenceID:      m.ReferenceID,
		ReferenceType:    m.ReferenceType,
		Reason:           m.Reason,
		PerformedBy:      m.PerformedBy,
		CreatedAt:        m.CreatedAt.UTC(),
	}, nil
}

// ==================== Product models ====================

type productModel struct {
	grove.BaseModel `grove:"table:stockledger_products"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	Active    bool      `grove:"active"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toProductModel(p *product.Product) *productModel {
	return &productModel{
		ID:        p.ID.String(),
		Name:      p.Name,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProductModel(m *productModel) (*product.Product, error) {
	productID, err := id.ParseProductID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse product id: %w", err)
	}
	return &product.Product{
		Entity: types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:     productID,
		Name:   m.Name,
		Active: m.Active,
	}, nil
}
