// Package observability provides a metrics extension for the stock ledger
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnSKUCreated          = (*MetricsExtension)(nil)
	_ plugin.OnSKUStatusChanged    = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRecorded = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientStock   = (*MetricsExtension)(nil)
	_ plugin.OnLowStock            = (*MetricsExtension)(nil)
	_ plugin.OnVersionConflict     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide stock metrics.
// Register it as a ledger plugin to automatically track them.
type MetricsExtension struct {
	factory MetricFactory

	// SKU metrics
	SKUCreated     Counter
	SKUActivated   Counter
	SKUDeactivated Counter
	SKUDeleted     Counter

	// Movement metrics
	StockIn        Counter
	StockOut       Counter
	StockAdjusted  Counter
	StockReserved  Counter
	StockReleased  Counter
	StockFulfilled Counter
	MovementSize   Histogram

	// Condition metrics
	InsufficientStock Counter
	LowStock          Counter

	// Concurrency metrics
	VersionConflicts Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// SKU metrics
		SKUCreated:     factory.Counter("stockledger.sku.created"),
		SKUActivated:   factory.Counter("stockledger.sku.activated"),
		SKUDeactivated: factory.Counter("stockledger.sku.deactivated"),
		SKUDeleted:     factory.Counter("stockledger.sku.deleted"),

		// Movement metrics
		StockIn:        factory.Counter("stockledger.stock.in"),
		StockOut:       factory.Counter("stockledger.stock.out"),
		StockAdjusted:  factory.Counter("stockledger.stock.adjusted"),
		StockReserved:  factory.Counter("stockledger.stock.reserved"),
		StockReleased:  factory.Counter("stockledger.stock.released"),
		StockFulfilled: factory.Counter("stockledger.stock.fulfilled"),
		MovementSize:   factory.Histogram("stockledger.movement.size"),

		// Condition metrics
		InsufficientStock: factory.Counter("stockledger.stock.insufficient"),
		LowStock:          factory.Counter("stockledger.stock.low"),

		// Concurrency metrics
		VersionConflicts: factory.Counter("stockledger.version.conflicts"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// SKU lifecycle hooks
// ──────────────────────────────────────────────────

// OnSKUCreated implements plugin.OnSKUCreated.
func (m *MetricsExtension) OnSKUCreated(_ context.Context, _ *sku.SKU) error {
	m.SKUCreated.Inc()
	return nil
}

// OnSKUStatusChanged implements plugin.OnSKUStatusChanged.
func (m *MetricsExtension) OnSKUStatusChanged(_ context.Context, _ *sku.SKU, change plugin.StatusChange) error {
	switch change {
	case plugin.StatusActivated:
		m.SKUActivated.Inc()
	case plugin.StatusDeactivated:
		m.SKUDeactivated.Inc()
	case plugin.StatusDeleted:
		m.SKUDeleted.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Stock movement hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (m *MetricsExtension) OnTransactionRecorded(_ context.Context, _ *sku.SKU, t *transaction.Transaction) error {
	switch t.Type {
	case transaction.TypeIn:
		m.StockIn.Inc()
	case transaction.TypeOut:
		if t.ReservedConsumed > 0 {
			m.StockFulfilled.Inc()
		} else {
			m.StockOut.Inc()
		}
	case transaction.TypeAdjustment:
		m.StockAdjusted.Inc()
	case transaction.TypeReserved:
		m.StockReserved.Inc()
	case transaction.TypeReleased:
		m.StockReleased.Inc()
	}
	m.MovementSize.Observe(float64(max(t.Quantity, -t.Quantity)))
	return nil
}

// OnInsufficientStock implements plugin.OnInsufficientStock.
func (m *MetricsExtension) OnInsufficientStock(_ context.Context, _ string, _, _ int64) error {
	m.InsufficientStock.Inc()
	return nil
}

// OnLowStock implements plugin.OnLowStock.
func (m *MetricsExtension) OnLowStock(_ context.Context, _ *sku.SKU) error {
	m.LowStock.Inc()
	return nil
}

// OnVersionConflict implements plugin.OnVersionConflict.
func (m *MetricsExtension) OnVersionConflict(_ context.Context, _ int) error {
	m.VersionConflicts.Inc()
	return nil
}
