package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

type captured struct {
	events []*AuditEvent
}

func (c *captured) recorder() RecorderFunc {
	return func(_ context.Context, evt *AuditEvent) error {
		c.events = append(c.events, evt)
		return nil
	}
}

func testSKU() *sku.SKU {
	return &sku.SKU{ID: id.NewSKUID(), Code: "WIDGET", Stock: 3, ReorderPoint: 5}
}

func TestMovementActions(t *testing.T) {
	s := testSKU()
	tests := []struct {
		name     string
		tx       *transaction.Transaction
		action   string
		category string
	}{
		{"in", &transaction.Transaction{Type: transaction.TypeIn, Quantity: 5}, ActionStockIn, CategoryInventory},
		{"out", &transaction.Transaction{Type: transaction.TypeOut, Quantity: 2}, ActionStockOut, CategoryInventory},
		{"fulfil", &transaction.Transaction{Type: transaction.TypeOut, Quantity: 2, ReservedConsumed: 2}, ActionStockFulfilled, CategoryAllocation},
		{"adjust", &transaction.Transaction{Type: transaction.TypeAdjustment, Quantity: -1}, ActionStockAdjusted, CategoryInventory},
		{"reserve", &transaction.Transaction{Type: transaction.TypeReserved, Quantity: 1}, ActionStockReserved, CategoryAllocation},
		{"release", &transaction.Transaction{Type: transaction.TypeReleased, Quantity: 1}, ActionStockReleased, CategoryAllocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			e := New(c.recorder())
			tt.tx.ID = id.NewTransactionID()
			tt.tx.PerformedBy = "alice"

			if err := e.OnTransactionRecorded(context.Background(), s, tt.tx); err != nil {
				t.Fatal(err)
			}
			if len(c.events) != 1 {
				t.Fatalf("events = %d", len(c.events))
			}
			evt := c.events[0]
			if evt.Action != tt.action || evt.Category != tt.category {
				t.Errorf("got %s/%s, want %s/%s", evt.Action, evt.Category, tt.action, tt.category)
			}
			if evt.ActorID != "alice" || evt.Metadata["quantity"] != tt.tx.Quantity {
				t.Errorf("event = %+v", evt)
			}
		})
	}
}

func TestStatusActions(t *testing.T) {
	c := &captured{}
	e := New(c.recorder())
	ctx := context.Background()
	s := testSKU()

	for _, change := range []plugin.StatusChange{plugin.StatusActivated, plugin.StatusDeactivated, plugin.StatusDeleted} {
		if err := e.OnSKUStatusChanged(ctx, s, change); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{ActionSKUActivated, ActionSKUDeactivated, ActionSKUDeleted}
	for i, evt := range c.events {
		if evt.Action != want[i] {
			t.Errorf("[%d] = %s, want %s", i, evt.Action, want[i])
		}
	}
}

func TestActionFiltering(t *testing.T) {
	ctx := context.Background()
	s := testSKU()

	c := &captured{}
	e := New(c.recorder(), WithEnabledActions(ActionStockLow))
	_ = e.OnSKUCreated(ctx, s)
	_ = e.OnLowStock(ctx, s)
	if len(c.events) != 1 || c.events[0].Action != ActionStockLow {
		t.Errorf("enabled filter: %v", c.events)
	}

	c = &captured{}
	e = New(c.recorder(), WithDisabledActions(ActionStockLow))
	_ = e.OnSKUCreated(ctx, s)
	_ = e.OnLowStock(ctx, s)
	if len(c.events) != 1 || c.events[0].Action != ActionSKUCreated {
		t.Errorf("disabled filter: %v", c.events)
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	failing := RecorderFunc(func(context.Context, *AuditEvent) error { return errors.New("down") })
	e := New(failing, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if err := e.OnInsufficientStock(context.Background(), "sku_x", 4, 1); err != nil {
		t.Errorf("hook returned %v", err)
	}
}

func TestZapRecorder(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := New(NewZapRecorder(zap.New(core)))
	ctx := context.Background()
	s := testSKU()

	_ = e.OnSKUCreated(ctx, s)
	_ = e.OnInsufficientStock(ctx, s.ID.String(), 10, 3)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Errorf("levels = %s, %s", entries[0].Level, entries[1].Level)
	}
	if entries[0].LoggerName != "audit" {
		t.Errorf("logger name = %q", entries[0].LoggerName)
	}
	fields := entries[1].ContextMap()
	if fields["action"] != ActionStockShortage || fields["resource_id"] != s.ID.String() {
		t.Errorf("fields = %v", fields)
	}
}
