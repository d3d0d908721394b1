package stockledger

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
	"github.com/xraph/stockledger/types"
)

// MovementSummary aggregates ledger entries of one SKU over a time range.
type MovementSummary struct {
	SKUID            id.SKUID  `json:"sku_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	TotalIn          int64     `json:"total_in"`
	TotalOut         int64     `json:"total_out"`
	TotalAdjustments int64     `json:"total_adjustments"`
	TotalReserved    int64     `json:"total_reserved"`
	TotalReleased    int64     `json:"total_released"`
	NetMovement      int64     `json:"net_movement"`
}

// StockInfo is a point-in-time snapshot of a SKU's quantities.
type StockInfo struct {
	SKUID           id.SKUID `json:"sku_id"`
	Code            string   `json:"code"`
	Stock           int64    `json:"stock"`
	Reserved        int64    `json:"reserved"`
	Available       int64    `json:"available"`
	ReorderPoint    int64    `json:"reorder_point"`
	ReorderQuantity int64    `json:"reorder_quantity"`
	IsLowOnStock    bool     `json:"is_low_on_stock"`
	IsOutOfStock    bool     `json:"is_out_of_stock"`
}

// Reconciliation compares a SKU's stored quantities with a replay of its
// ledger from zero.
type Reconciliation struct {
	SKUID            id.SKUID `json:"sku_id"`
	Entries          int      `json:"entries"`
	ReplayedStock    int64    `json:"replayed_stock"`
	ReplayedReserved int64    `json:"replayed_reserved"`
	Stock            int64    `json:"stock"`
	Reserved         int64    `json:"reserved"`
	Consistent       bool     `json:"consistent"`
}

// GetStockMovementSummary totals the SKU's entries created within
// [start, end]. Adjustments are summed with their sign.
func (l *Ledger) GetStockMovementSummary(ctx context.Context, skuID id.SKUID, start, end time.Time) (*MovementSummary, error) {
	const op = "get_stock_movement_summary"
	ctx, span := l.startSpan(ctx, op, attribute.String("stockledger.sku_id", skuID.String()))
	defer span.End()

	if start.After(end) {
		return nil, l.fail(ctx, span, op, ValidationError{Field: "start", Message: "must not be after end"})
	}
	if _, err := l.store.GetSKU(ctx, skuID); err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	entries, err := l.store.ListTransactions(ctx, transaction.QueryOpts{SKUID: skuID, Start: start, End: end})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	sum := &MovementSummary{SKUID: skuID, Start: start, End: end}
	for _, t := range entries {
		switch t.Type {
		case transaction.TypeIn:
			sum.TotalIn += t.Quantity
		case transaction.TypeOut:
			sum.TotalOut += t.Quantity
		case transaction.TypeAdjustment:
			sum.TotalAdjustments += t.Quantity
		case transaction.TypeReserved:
			sum.TotalReserved += t.Quantity
		case transaction.TypeReleased:
			sum.TotalReleased += t.Quantity
		}
	}
	sum.NetMovement = sum.TotalIn - sum.TotalOut + sum.TotalAdjustments
	return sum, nil
}

// GetCurrentStockInfo returns the SKU's current quantities.
func (l *Ledger) GetCurrentStockInfo(ctx context.Context, skuID id.SKUID) (*StockInfo, error) {
	s, err := l.store.GetSKU(ctx, skuID)
	if err != nil {
		return nil, err
	}
	return stockInfo(s), nil
}

func stockInfo(s *sku.SKU) *StockInfo {
	return &StockInfo{
		SKUID:           s.ID,
		Code:            s.Code,
		Stock:           s.Stock,
		Reserved:        s.Reserved,
		Available:       s.Available(),
		ReorderPoint:    s.ReorderPoint,
		ReorderQuantity: s.ReorderQuantity,
		IsLowOnStock:    s.IsLowOnStock(),
		IsOutOfStock:    s.IsOutOfStock(),
	}
}

// ListLowStock returns active SKUs at or below their reorder point.
func (l *Ledger) ListLowStock(ctx context.Context, opts types.ListOpts) ([]*sku.SKU, error) {
	return l.store.ListSKUs(ctx, sku.ListOpts{ListOpts: opts, Condition: sku.ConditionLowStock, ActiveOnly: true})
}

// ListOutOfStock returns active SKUs with no units on hand.
func (l *Ledger) ListOutOfStock(ctx context.Context, opts types.ListOpts) ([]*sku.SKU, error) {
	return l.store.ListSKUs(ctx, sku.ListOpts{ListOpts: opts, Condition: sku.ConditionOutOfStock, ActiveOnly: true})
}

// ListTransactionsBySKU returns the SKU's ledger, oldest first.
func (l *Ledger) ListTransactionsBySKU(ctx context.Context, skuID id.SKUID, opts types.ListOpts) ([]*transaction.Transaction, error) {
	return l.store.ListTransactions(ctx, transaction.QueryOpts{ListOpts: opts, SKUID: skuID})
}

// ListTransactionsByType returns every entry of typ, oldest first.
func (l *Ledger) ListTransactionsByType(ctx context.Context, typ transaction.Type, opts types.ListOpts) ([]*transaction.Transaction, error) {
	if !typ.Valid() {
		return nil, ValidationError{Field: "type", Message: "unknown transaction type " + string(typ)}
	}
	return l.store.ListTransactions(ctx, transaction.QueryOpts{ListOpts: opts, Type: typ})
}

// ListTransactionsByReference returns every entry carrying referenceID.
func (l *Ledger) ListTransactionsByReference(ctx context.Context, referenceID string, opts types.ListOpts) ([]*transaction.Transaction, error) {
	if strings.TrimSpace(referenceID) == "" {
		return nil, ValidationError{Field: "reference_id", Message: "must not be blank"}
	}
	return l.store.ListTransactions(ctx, transaction.QueryOpts{ListOpts: opts, ReferenceID: referenceID})
}

// ListTransactionsByDateRange returns entries created within [start, end].
func (l *Ledger) ListTransactionsByDateRange(ctx context.Context, start, end time.Time, opts types.ListOpts) ([]*transaction.Transaction, error) {
	if start.After(end) {
		return nil, ValidationError{Field: "start", Message: "must not be after end"}
	}
	return l.store.ListTransactions(ctx, transaction.QueryOpts{ListOpts: opts, Start: start, End: end})
}

// ListTransactionsBySKUAndDateRange returns the SKU's entries created within
// [start, end].
func (l *Ledger) ListTransactionsBySKUAndDateRange(ctx context.Context, skuID id.SKUID, start, end time.Time, opts types.ListOpts) ([]*transaction.Transaction, error) {
	if start.After(end) {
		return nil, ValidationError{Field: "start", Message: "must not be after end"}
	}
	return l.store.ListTransactions(ctx, transaction.QueryOpts{ListOpts: opts, SKUID: skuID, Start: start, End: end})
}

// Reconcile replays the SKU's whole ledger in sequence order from zero
// quantities and compares the result with the stored aggregate. Stock clamps
// at zero at every step, as the mutators do.
func (l *Ledger) Reconcile(ctx context.Context, skuID id.SKUID) (*Reconciliation, error) {
	const op = "reconcile"
	ctx, span := l.startSpan(ctx, op, attribute.String("stockledger.sku_id", skuID.String()))
	defer span.End()

	s, err := l.store.GetSKU(ctx, skuID)
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}
	entries, err := l.store.ListTransactions(ctx, transaction.QueryOpts{SKUID: skuID})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	slices.SortStableFunc(entries, transaction.BySequence)

	r := &Reconciliation{SKUID: skuID, Entries: len(entries), Stock: s.Stock, Reserved: s.Reserved}
	for _, t := range entries {
		r.ReplayedStock = max(0, r.ReplayedStock+t.StockDelta())
		r.ReplayedReserved += t.ReservedDelta()
	}
	r.Consistent = r.ReplayedStock == r.Stock && r.ReplayedReserved == r.Reserved

	if !r.Consistent {
		l.logger.Warn("ledger does not reconcile",
			"sku_id", skuID.String(),
			"stock", r.Stock,
			"replayed_stock", r.ReplayedStock,
			"reserved", r.Reserved,
			"replayed_reserved", r.ReplayedReserved,
		)
	}
	return r, nil
}
