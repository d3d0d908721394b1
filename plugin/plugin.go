// Package plugin provides an extensible plugin system for the stock ledger.
// Plugins hook into lifecycle events; every hook fires after the unit of
// work that caused it has committed.
package plugin

import (
	"context"

	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// SKU lifecycle hooks
// ──────────────────────────────────────────────────

// StatusChange names an SKU lifecycle transition.
type StatusChange string

const (
	StatusActivated   StatusChange = "activated"
	StatusDeactivated StatusChange = "deactivated"
	StatusDeleted     StatusChange = "deleted"
)

// OnSKUCreated is called when a new SKU is created.
type OnSKUCreated interface {
	Plugin
	OnSKUCreated(ctx context.Context, s *sku.SKU) error
}

// OnSKUStatusChanged is called when an SKU is activated, deactivated or deleted.
type OnSKUStatusChanged interface {
	Plugin
	OnSKUStatusChanged(ctx context.Context, s *sku.SKU, change StatusChange) error
}

// ──────────────────────────────────────────────────
// Stock movement hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded is called once per committed ledger entry, with the
// SKU state that entry produced.
type OnTransactionRecorded interface {
	Plugin
	OnTransactionRecorded(ctx context.Context, s *sku.SKU, tx *transaction.Transaction) error
}

// OnInsufficientStock is called when a movement is rejected for lack of stock.
type OnInsufficientStock interface {
	Plugin
	OnInsufficientStock(ctx context.Context, skuID string, requested, limit int64) error
}

// OnLowStock is called when stock drops to or below the reorder point, and
// for every low SKU found by the reorder scan.
type OnLowStock interface {
	Plugin
	OnLowStock(ctx context.Context, s *sku.SKU) error
}

// ──────────────────────────────────────────────────
// Concurrency hooks
// ──────────────────────────────────────────────────

// OnVersionConflict is called each time a retried unit of work loses an
// optimistic-concurrency race.
type OnVersionConflict interface {
	Plugin
	OnVersionConflict(ctx context.Context, attempt int) error
}
