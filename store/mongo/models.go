package mongo

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

// skuModel carries LiveCode only while the SKU is not deleted; it is null
// otherwise, so a partial unique index over string values enforces code
// uniqueness among live rows.
type skuModel struct {
	grove.BaseModel `grove:"table:stockledger_skus"`

	ID              string     `grove:"id,pk"            bson:"_id"`
	Code            string     `grove:"code"             bson:"code"`
	LiveCode        *string    `grove:"live_code"        bson:"live_code"`
	ProductID       string     `grove:"product_id"       bson:"product_id"`
	Price           string     `grove:"price"            bson:"price"`
	Cost            string     `grove:"cost"             bson:"cost"`
	Stock           int64      `grove:"stock"            bson:"stock"`
	Reserved        int64      `grove:"reserved"         bson:"reserved"`
	ReorderPoint    int64      `grove:"reorder_point"    bson:"reorder_point"`
	ReorderQuantity int64      `grove:"reorder_quantity" bson:"reorder_quantity"`
	Active          bool       `grove:"active"           bson:"active"`
	DeletedAt       *time.Time `grove:"deleted_at"       bson:"deleted_at"`
	Version         int64      `grove:"version"          bson:"version"`
	CreatedAt       time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"       bson:"updated_at"`
}

func toSKUModel(k *sku.SKU) *skuModel {
	m := &skuModel{
		ID:              k.ID.String(),
		Code:            k.Code,
		ProductID:       k.ProductID.String(),
		Price:           k.Price.String(),
		Cost:            k.Cost.String(),
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
	if k.DeletedAt == nil {
		code := k.Code
		m.LiveCode = &code
	}
	return m
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
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	cost, err := decimal.NewFromString(m.Cost)
	if err != nil {
		return nil, fmt.Errorf("parse cost: %w", err)
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
		Price:           price,
		Cost:            cost,
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

	ID               string    `grove:"id,pk"             bson:"_id"`
	SKUID            string    `grove:"sku_id"            bson:"sku_id"`
	Sequence         int64     `grove:"sequence"          bson:"sequence"`
	Type             string    `grove:"type"              bson:"type"`
	Quantity         int64     `grove:"quantity"          bson:"quantity"`
	ReservedConsumed int64     `grove:"reserved_consumed" bson:"reserved_consumed"`
	ReferenceID      string    `grove:"reference_id"      bson:"reference_id"`
	ReferenceType    string    `grove:"reference_type"    bson:"reference_type"`
	Reason           string    `grove:"reason"            bson:"reason"`
	PerformedBy      string    `grove:"performed_by"      bson:"performed_by"`
	CreatedAt        time.Time `grove:"created_at"        bson:"created_at"`
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

	ID        string    `grove:"id,pk"      bson:"_id"`
	Name      string    `grove:"name"       bson:"name"`
	Active    bool      `grove:"active"     bson:"active"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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
