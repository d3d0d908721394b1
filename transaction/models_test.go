package transaction

import (
	"testing"
	"time"

	"github.com/xraph/stockledger/id"
)

func TestDirectionHelpers(t *testing.T) {
	tests := []struct {
		typ      Type
		qty      int64
		increase bool
		decrease bool
	}{
		{TypeIn, 10, true, false},
		{TypeOut, 10, false, true},
		{TypeAdjustment, 5, true, false},
		{TypeAdjustment, -5, false, true},
		{TypeAdjustment, 0, false, false},
		{TypeReserved, 10, false, false},
		{TypeReleased, 10, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			tx := &Transaction{Type: tt.typ, Quantity: tt.qty}
			if tx.IsStockIncrease() != tt.increase {
				t.Errorf("IsStockIncrease() = %v, want %v", tx.IsStockIncrease(), tt.increase)
			}
			if tx.IsStockDecrease() != tt.decrease {
				t.Errorf("IsStockDecrease() = %v, want %v", tx.IsStockDecrease(), tt.decrease)
			}
		})
	}
}

func TestDeltas(t *testing.T) {
	tests := []struct {
		name     string
		tx       Transaction
		stock    int64
		reserved int64
	}{
		{"in", Transaction{Type: TypeIn, Quantity: 100}, 100, 0},
		{"out", Transaction{Type: TypeOut, Quantity: 30}, -30, 0},
		{"fulfilment", Transaction{Type: TypeOut, Quantity: 30, ReservedConsumed: 30}, -30, -30},
		{"adjust down", Transaction{Type: TypeAdjustment, Quantity: -5}, -5, 0},
		{"reserved", Transaction{Type: TypeReserved, Quantity: 20}, 0, 20},
		{"released", Transaction{Type: TypeReleased, Quantity: 10}, 0, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.StockDelta(); got != tt.stock {
				t.Errorf("StockDelta() = %d, want %d", got, tt.stock)
			}
			if got := tt.tx.ReservedDelta(); got != tt.reserved {
				t.Errorf("ReservedDelta() = %d, want %d", got, tt.reserved)
			}
		})
	}
}

func TestNewStampsIdentity(t *testing.T) {
	skuID := id.NewSKUID()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))

	tx := New(skuID, TypeIn, 5, Details{ReferenceID: "PO-1", PerformedBy: "alice"}, at)
	if tx.ID.Prefix() != id.PrefixTransaction {
		t.Errorf("prefix = %q", tx.ID.Prefix())
	}
	if !tx.CreatedAt.Equal(at) || tx.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at = %v", tx.CreatedAt)
	}
	if tx.ReferenceID != "PO-1" || tx.PerformedBy != "alice" {
		t.Errorf("details not copied: %+v", tx)
	}
}

func TestQueryOptsMatches(t *testing.T) {
	skuID := id.NewSKUID()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tx := &Transaction{SKUID: skuID, Type: TypeOut, ReferenceID: "SO-9", CreatedAt: at}

	tests := []struct {
		name string
		opts QueryOpts
		want bool
	}{
		{"no filter", QueryOpts{}, true},
		{"same sku", QueryOpts{SKUID: skuID}, true},
		{"other sku", QueryOpts{SKUID: id.NewSKUID()}, false},
		{"type", QueryOpts{Type: TypeOut}, true},
		{"other type", QueryOpts{Type: TypeIn}, false},
		{"reference", QueryOpts{ReferenceID: "SO-9"}, true},
		{"other reference", QueryOpts{ReferenceID: "SO-1"}, false},
		{"inclusive start", QueryOpts{Start: at}, true},
		{"inclusive end", QueryOpts{End: at}, true},
		{"before range", QueryOpts{Start: at.Add(time.Second)}, false},
		{"after range", QueryOpts{End: at.Add(-time.Second)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Matches(tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
