package stockledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/transaction"
	"github.com/xraph/stockledger/types"
)

// Movement is the input of every stock-moving operation.
type Movement struct {
	SKUID         id.SKUID `json:"sku_id"`
	Quantity      int64    `json:"quantity"`
	ReferenceID   string   `json:"reference_id"   validate:"max=255"`
	ReferenceType string   `json:"reference_type" validate:"max=255"`
	Reason        string   `json:"reason"         validate:"max=1000"`
	PerformedBy   string   `json:"performed_by"   validate:"required,notblank"`
}

func (m Movement) details() transaction.Details {
	return transaction.Details{
		ReferenceID:   m.ReferenceID,
		ReferenceType: m.ReferenceType,
		Reason:        m.Reason,
		PerformedBy:   m.PerformedBy,
	}
}

// Result is the outcome of a stock-moving operation: the SKU state after
// commit and the ledger entry that describes the change.
type Result struct {
	SKU         *sku.SKU                 `json:"sku"`
	Transaction *transaction.Transaction `json:"transaction,omitempty"`
}

// NewSKU is the input of CreateSKU.
type NewSKU struct {
	Code            string          `json:"code"             validate:"required,notblank,max=100"`
	ProductID       id.ProductID    `json:"product_id"`
	Price           decimal.Decimal `json:"price"`
	Cost            decimal.Decimal `json:"cost"`
	InitialStock    int64           `json:"initial_stock"    validate:"gte=0"`
	ReorderPoint    int64           `json:"reorder_point"    validate:"gte=0"`
	ReorderQuantity int64           `json:"reorder_quantity" validate:"gte=0"`
	PerformedBy     string          `json:"performed_by"     validate:"required,notblank"`
}

// ──────────────────────────────────────────────────
// Stock movements
// ──────────────────────────────────────────────────

// RecordStockIn adds received units to stock and records an IN entry.
func (l *Ledger) RecordStockIn(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "record_stock_in", m, transaction.TypeIn, func(s *sku.SKU) (*transaction.Transaction, error) {
		s.Adjust(m.Quantity)
		return l.entry(s, transaction.TypeIn, m.Quantity, m.details()), nil
	})
}

// RecordStockOut removes units from stock unconditionally, clamping at zero,
// and records an OUT entry. Reservations are untouched.
func (l *Ledger) RecordStockOut(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "record_stock_out", m, transaction.TypeOut, func(s *sku.SKU) (*transaction.Transaction, error) {
		s.Adjust(-m.Quantity)
		return l.entry(s, transaction.TypeOut, m.Quantity, m.details()), nil
	})
}

// RecordStockAdjustment applies a signed correction to stock and records an
// ADJUSTMENT entry carrying the signed delta.
func (l *Ledger) RecordStockAdjustment(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "record_stock_adjustment", m, transaction.TypeAdjustment, func(s *sku.SKU) (*transaction.Transaction, error) {
		s.Adjust(m.Quantity)
		return l.entry(s, transaction.TypeAdjustment, m.Quantity, m.details()), nil
	})
}

// Reserve allocates available units to pending demand. The SKU must be active.
func (l *Ledger) Reserve(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "reserve", m, transaction.TypeReserved, func(s *sku.SKU) (*transaction.Transaction, error) {
		if !s.Active {
			return nil, &BusinessRuleError{Err: ErrSKUInactive, Message: "cannot reserve against an inactive SKU"}
		}
		if err := s.Reserve(m.Quantity); err != nil {
			return nil, insufficient(s, err, "available")
		}
		return l.entry(s, transaction.TypeReserved, m.Quantity, m.details()), nil
	})
}

// Release frees reserved units. Requests above the reserved amount are capped;
// the entry records the amount actually released.
func (l *Ledger) Release(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "release", m, transaction.TypeReleased, func(s *sku.SKU) (*transaction.Transaction, error) {
		actual, err := s.Release(m.Quantity)
		if err != nil {
			return nil, err
		}
		return l.entry(s, transaction.TypeReleased, actual, m.details()), nil
	})
}

// FulfillOrder ships reserved units, decrementing both reserved and stock,
// and records an OUT entry drawn from reservations.
func (l *Ledger) FulfillOrder(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "fulfill_order", m, transaction.TypeOut, func(s *sku.SKU) (*transaction.Transaction, error) {
		if err := s.Fulfill(m.Quantity); err != nil {
			return nil, insufficient(s, err, "reserved")
		}
		t := l.entry(s, transaction.TypeOut, m.Quantity, m.details())
		t.ReservedConsumed = m.Quantity
		return t, nil
	})
}

// AddStock is RecordStockIn for callers that only know "add".
func (l *Ledger) AddStock(ctx context.Context, m Movement) (*Result, error) {
	return l.RecordStockIn(ctx, m)
}

// RemoveStock removes units only if raw stock covers the request. Unlike
// RecordStockOut it never clamps; it checks stock, not available.
func (l *Ledger) RemoveStock(ctx context.Context, m Movement) (*Result, error) {
	return l.move(ctx, "remove_stock", m, transaction.TypeOut, func(s *sku.SKU) (*transaction.Transaction, error) {
		if s.Stock < m.Quantity {
			return nil, &InsufficientStockError{
				SKUID:     s.ID.String(),
				Requested: m.Quantity,
				Limit:     s.Stock,
				Limiting:  "stock",
			}
		}
		s.Adjust(-m.Quantity)
		return l.entry(s, transaction.TypeOut, m.Quantity, m.details()), nil
	})
}

// move validates m and runs one single-entry unit of work.
func (l *Ledger) move(ctx context.Context, op string, m Movement, typ transaction.Type,
	fn func(s *sku.SKU) (*transaction.Transaction, error),
) (*Result, error) {
	ctx, span := l.startSpan(ctx, op,
		attribute.String("stockledger.sku_id", m.SKUID.String()),
		attribute.Int64("stockledger.quantity", m.Quantity),
	)
	defer span.End()

	if err := l.validateMovement(m, typ); err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	s, t, err := l.mutate(ctx, m.SKUID, func(_ context.Context, _ store.Tx, s *sku.SKU) (*transaction.Transaction, error) {
		return fn(s)
	})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	l.logger.Debug("stock movement recorded",
		"op", op,
		"sku_id", s.ID.String(),
		"type", string(typ),
		"quantity", t.Quantity,
		"sequence", t.Sequence,
		"stock", s.Stock,
		"reserved", s.Reserved,
	)
	return &Result{SKU: s, Transaction: t}, nil
}

// mutate is the unit of work shared by every write: load the SKU, apply fn,
// persist with a version check, append fn's entry (if any) stamped with the
// new version as its sequence, commit. fn may run more than once when the
// store retries the unit of work, so it must derive everything from s. Hooks
// fire only after commit.
func (l *Ledger) mutate(ctx context.Context, skuID id.SKUID,
	fn func(ctx context.Context, tx store.Tx, s *sku.SKU) (*transaction.Transaction, error),
) (*sku.SKU, *transaction.Transaction, error) {
	var (
		result *sku.SKU
		entry  *transaction.Transaction
		wasLow bool
	)

	err := l.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		s, err := tx.GetSKU(ctx, skuID)
		if err != nil {
			return err
		}
		wasLow = s.IsLowOnStock()

		t, err := fn(ctx, tx, s)
		if err != nil {
			return err
		}

		s.Touch(l.now())
		if err := tx.UpdateSKU(ctx, s); err != nil {
			return err
		}
		if t != nil {
			t.Sequence = s.Version
			if err := tx.AppendTransaction(ctx, t); err != nil {
				return fmt.Errorf("append %s entry: %w", t.Type, err)
			}
		}

		result, entry = s, t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if entry != nil {
		l.plugins.EmitTransactionRecorded(ctx, result, entry)
	}
	if !wasLow && result.IsLowOnStock() && result.Active {
		l.plugins.EmitLowStock(ctx, result)
	}
	return result, entry, nil
}

// ──────────────────────────────────────────────────
// SKU lifecycle
// ──────────────────────────────────────────────────

// CreateSKU creates a SKU under an existing product. A positive InitialStock
// is booked as an IN entry in the same unit of work. The SKU starts active
// when its product is active.
func (l *Ledger) CreateSKU(ctx context.Context, in NewSKU) (*Result, error) {
	const op = "create_sku"
	ctx, span := l.startSpan(ctx, op, attribute.String("stockledger.sku_code", in.Code))
	defer span.End()

	if err := l.validateStruct(in); err != nil {
		return nil, l.fail(ctx, span, op, err)
	}
	if in.Price.IsNegative() {
		return nil, l.fail(ctx, span, op, ValidationError{Field: "price", Message: "must not be negative"})
	}
	if in.Cost.IsNegative() {
		return nil, l.fail(ctx, span, op, ValidationError{Field: "cost", Message: "must not be negative"})
	}

	var (
		s       *sku.SKU
		initial *transaction.Transaction
	)
	err := l.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if _, err := tx.GetSKUByCode(ctx, in.Code); err == nil {
			return fmt.Errorf("sku code %q: %w", in.Code, ErrAlreadyExists)
		} else if !errors.Is(err, ErrSKUNotFound) {
			return err
		}

		k := &sku.SKU{
			Entity:          types.NewEntityAt(l.now()),
			ID:              id.NewSKUID(),
			Code:            in.Code,
			ProductID:       in.ProductID,
			Price:           in.Price,
			Cost:            in.Cost,
			ReorderPoint:    in.ReorderPoint,
			ReorderQuantity: in.ReorderQuantity,
			Active:          p.Active,
			Version:         1,
		}
		var t *transaction.Transaction
		if in.InitialStock > 0 {
			k.Adjust(in.InitialStock)
			t = l.entry(k, transaction.TypeIn, in.InitialStock, transaction.Details{
				Reason:      "Initial stock",
				PerformedBy: in.PerformedBy,
			})
			t.Sequence = k.Version
		}

		if err := tx.CreateSKU(ctx, k); err != nil {
			return err
		}
		if t != nil {
			if err := tx.AppendTransaction(ctx, t); err != nil {
				return err
			}
		}

		s, initial = k, t
		return nil
	})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	l.plugins.EmitSKUCreated(ctx, s)
	if initial != nil {
		l.plugins.EmitTransactionRecorded(ctx, s, initial)
	}

	l.logger.Info("sku created",
		"sku_id", s.ID.String(),
		"code", s.Code,
		"initial_stock", in.InitialStock,
	)
	return &Result{SKU: s, Transaction: initial}, nil
}

// GetSKU returns a non-deleted SKU by ID.
func (l *Ledger) GetSKU(ctx context.Context, skuID id.SKUID) (*sku.SKU, error) {
	return l.store.GetSKU(ctx, skuID)
}

// GetSKUByCode returns a non-deleted SKU by code.
func (l *Ledger) GetSKUByCode(ctx context.Context, code string) (*sku.SKU, error) {
	return l.store.GetSKUByCode(ctx, code)
}

// ActivateSKU makes a SKU reservable again. It fails with a business-rule
// error while the parent product is inactive.
func (l *Ledger) ActivateSKU(ctx context.Context, skuID id.SKUID, performedBy string) (*sku.SKU, error) {
	const op = "activate_sku"
	ctx, span := l.startSpan(ctx, op, attribute.String("stockledger.sku_id", skuID.String()))
	defer span.End()

	if err := l.validatePerformer(performedBy); err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	s, _, err := l.mutate(ctx, skuID, func(ctx context.Context, tx store.Tx, s *sku.SKU) (*transaction.Transaction, error) {
		p, err := tx.GetProduct(ctx, s.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, &BusinessRuleError{Err: ErrProductInactive, Message: "cannot activate a SKU whose product is inactive"}
		}
		s.Active = true
		return nil, nil
	})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	l.plugins.EmitSKUStatusChanged(ctx, s, plugin.StatusActivated)
	l.logger.Info("sku activated", "sku_id", s.ID.String(), "performed_by", performedBy)
	return s, nil
}

// DeactivateSKU stops new reservations. Any reserved units are released first,
// recorded as one RELEASED entry.
func (l *Ledger) DeactivateSKU(ctx context.Context, skuID id.SKUID, performedBy string) (*Result, error) {
	return l.retire(ctx, "deactivate_sku", skuID, performedBy, plugin.StatusDeactivated)
}

// DeleteSKU soft-deletes a SKU after releasing any reserved units. The row and
// its ledger history are retained.
func (l *Ledger) DeleteSKU(ctx context.Context, skuID id.SKUID, performedBy string) (*Result, error) {
	return l.retire(ctx, "delete_sku", skuID, performedBy, plugin.StatusDeleted)
}

func (l *Ledger) retire(ctx context.Context, op string, skuID id.SKUID, performedBy string, change plugin.StatusChange) (*Result, error) {
	ctx, span := l.startSpan(ctx, op, attribute.String("stockledger.sku_id", skuID.String()))
	defer span.End()

	if err := l.validatePerformer(performedBy); err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	s, released, err := l.mutate(ctx, skuID, func(_ context.Context, _ store.Tx, s *sku.SKU) (*transaction.Transaction, error) {
		var t *transaction.Transaction
		if s.Reserved > 0 {
			n, err := s.Release(s.Reserved)
			if err != nil {
				return nil, err
			}
			t = l.entry(s, transaction.TypeReleased, n, transaction.Details{
				Reason:      "Released on " + string(change),
				PerformedBy: performedBy,
			})
		}

		s.Active = false
		if change == plugin.StatusDeleted {
			now := l.now()
			s.DeletedAt = &now
		}
		return t, nil
	})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}

	l.plugins.EmitSKUStatusChanged(ctx, s, change)
	l.logger.Info("sku "+string(change),
		"sku_id", s.ID.String(),
		"released", released != nil,
		"performed_by", performedBy,
	)
	return &Result{SKU: s, Transaction: released}, nil
}

// UpdateReorderSettings changes the reorder point and quantity. Both must be
// non-negative. No ledger entry is written; quantities are unchanged.
func (l *Ledger) UpdateReorderSettings(ctx context.Context, skuID id.SKUID, point, quantity int64) (*sku.SKU, error) {
	const op = "update_reorder_settings"
	ctx, span := l.startSpan(ctx, op, attribute.String("stockledger.sku_id", skuID.String()))
	defer span.End()

	if point < 0 {
		return nil, l.fail(ctx, span, op, ValidationError{Field: "reorder_point", Message: "must not be negative"})
	}
	if quantity < 0 {
		return nil, l.fail(ctx, span, op, ValidationError{Field: "reorder_quantity", Message: "must not be negative"})
	}

	s, _, err := l.mutate(ctx, skuID, func(_ context.Context, _ store.Tx, s *sku.SKU) (*transaction.Transaction, error) {
		s.ReorderPoint = point
		s.ReorderQuantity = quantity
		return nil, nil
	})
	if err != nil {
		return nil, l.fail(ctx, span, op, err)
	}
	return s, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (l *Ledger) entry(s *sku.SKU, typ transaction.Type, qty int64, d transaction.Details) *transaction.Transaction {
	return transaction.New(s.ID, typ, qty, d, l.now())
}

// insufficient converts an aggregate shortage into the public error type.
func insufficient(s *sku.SKU, err error, limiting string) error {
	var short *sku.ShortageError
	if !errors.As(err, &short) {
		return err
	}
	return &InsufficientStockError{
		SKUID:     s.ID.String(),
		Requested: short.Requested,
		Limit:     short.Have,
		Limiting:  limiting,
	}
}

func (l *Ledger) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "stockledger."+op, trace.WithAttributes(attrs...))
}

// fail records err on the span, emits the matching hooks and returns err.
func (l *Ledger) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, CodeOf(err))

	var short *InsufficientStockError
	switch {
	case errors.As(err, &short):
		l.plugins.EmitInsufficientStock(ctx, short.SKUID, short.Requested, short.Limit)
	case errors.Is(err, ErrVersionConflict):
		l.plugins.EmitVersionConflict(ctx, attemptFrom(ctx))
	}

	l.logger.Debug("stock operation rejected",
		"op", op,
		"code", CodeOf(err),
		"error", err,
	)
	return err
}
