// Package audithook bridges stock ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter, or the
// zap-backed ZapRecorder, at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnSKUCreated          = (*Extension)(nil)
	_ plugin.OnSKUStatusChanged    = (*Extension)(nil)
	_ plugin.OnTransactionRecorded = (*Extension)(nil)
	_ plugin.OnInsufficientStock   = (*Extension)(nil)
	_ plugin.OnLowStock            = (*Extension)(nil)
	_ plugin.OnVersionConflict     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges stock ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// SKU lifecycle hooks
// ──────────────────────────────────────────────────

// OnSKUCreated implements plugin.OnSKUCreated.
func (e *Extension) OnSKUCreated(ctx context.Context, s *sku.SKU) error {
	return e.record(ctx, ActionSKUCreated, SeverityInfo, OutcomeSuccess,
		ResourceSKU, s.ID.String(), "", CategoryCatalog, "",
		"code", s.Code,
		"product_id", s.ProductID.String(),
		"active", s.Active,
	)
}

// OnSKUStatusChanged implements plugin.OnSKUStatusChanged.
func (e *Extension) OnSKUStatusChanged(ctx context.Context, s *sku.SKU, change plugin.StatusChange) error {
	action := ActionSKUActivated
	switch change {
	case plugin.StatusDeactivated:
		action = ActionSKUDeactivated
	case plugin.StatusDeleted:
		action = ActionSKUDeleted
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceSKU, s.ID.String(), "", CategoryCatalog, "",
		"code", s.Code,
		"stock", s.Stock,
	)
}

// ──────────────────────────────────────────────────
// Stock movement hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (e *Extension) OnTransactionRecorded(ctx context.Context, s *sku.SKU, t *transaction.Transaction) error {
	action, category := movementAction(t)
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, t.ID.String(), t.PerformedBy, category, t.Reason,
		"sku_id", s.ID.String(),
		"type", string(t.Type),
		"quantity", t.Quantity,
		"reference_id", t.ReferenceID,
		"reference_type", t.ReferenceType,
		"stock", s.Stock,
		"reserved", s.Reserved,
	)
}

func movementAction(t *transaction.Transaction) (action, category string) {
	switch t.Type {
	case transaction.TypeIn:
		return ActionStockIn, CategoryInventory
	case transaction.TypeOut:
		if t.ReservedConsumed > 0 {
			return ActionStockFulfilled, CategoryAllocation
		}
		return ActionStockOut, CategoryInventory
	case transaction.TypeAdjustment:
		return ActionStockAdjusted, CategoryInventory
	case transaction.TypeReserved:
		return ActionStockReserved, CategoryAllocation
	default:
		return ActionStockReleased, CategoryAllocation
	}
}

// OnInsufficientStock implements plugin.OnInsufficientStock.
func (e *Extension) OnInsufficientStock(ctx context.Context, skuID string, requested, limit int64) error {
	return e.record(ctx, ActionStockShortage, SeverityWarning, OutcomeFailure,
		ResourceSKU, skuID, "", CategoryAllocation, "insufficient stock",
		"requested", requested,
		"limit", limit,
	)
}

// OnLowStock implements plugin.OnLowStock.
func (e *Extension) OnLowStock(ctx context.Context, s *sku.SKU) error {
	return e.record(ctx, ActionStockLow, SeverityWarning, OutcomeSuccess,
		ResourceSKU, s.ID.String(), "", CategoryInventory, "",
		"code", s.Code,
		"stock", s.Stock,
		"reorder_point", s.ReorderPoint,
		"reorder_quantity", s.ReorderQuantity,
	)
}

// OnVersionConflict implements plugin.OnVersionConflict.
func (e *Extension) OnVersionConflict(ctx context.Context, attempt int) error {
	return e.record(ctx, ActionVersionConflict, SeverityWarning, OutcomeFailure,
		ResourceSKU, "", "", CategoryConcurrency, "",
		"attempt", attempt,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, actorID, category, reason string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		ActorID:    actorID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
