package stockledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/store/memory"
	"github.com/xraph/stockledger/store/sqlite"
	"github.com/xraph/stockledger/transaction"
	"github.com/xraph/stockledger/types"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances one second per reading.
type stepClock struct {
	mu sync.Mutex
	n  int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return base.Add(time.Duration(c.n) * time.Second)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	ledger  *stockledger.Ledger
	store   *memory.Store
	product id.ProductID
}

func newFixture(t *testing.T, opts ...stockledger.Option) *fixture {
	t.Helper()
	s := memory.New()
	clock := &stepClock{}
	opts = append([]stockledger.Option{
		stockledger.WithLogger(quietLogger()),
		stockledger.WithClock(clock.Now),
	}, opts...)

	f := &fixture{
		ledger:  stockledger.New(s, opts...),
		store:   s,
		product: seedProduct(t, s, true),
	}
	return f
}

func seedProduct(t *testing.T, s *memory.Store, active bool) id.ProductID {
	t.Helper()
	p := &product.Product{
		Entity: types.NewEntityAt(base),
		ID:     id.NewProductID(),
		Name:   "Widget",
		Active: active,
	}
	if err := s.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p.ID
}

func (f *fixture) sku(t *testing.T, code string, initial, reorderPoint int64) *sku.SKU {
	t.Helper()
	res, err := f.ledger.CreateSKU(context.Background(), stockledger.NewSKU{
		Code:         code,
		ProductID:    f.product,
		Price:        decimal.RequireFromString("19.99"),
		Cost:         decimal.RequireFromString("7.50"),
		InitialStock: initial,
		ReorderPoint: reorderPoint,
		PerformedBy:  "tester",
	})
	if err != nil {
		t.Fatalf("CreateSKU(%s): %v", code, err)
	}
	return res.SKU
}

func mv(skuID id.SKUID, qty int64) stockledger.Movement {
	return stockledger.Movement{SKUID: skuID, Quantity: qty, PerformedBy: "tester"}
}

func (f *fixture) entries(t *testing.T, skuID id.SKUID) []*transaction.Transaction {
	t.Helper()
	list, err := f.ledger.ListTransactionsBySKU(context.Background(), skuID, types.ListOpts{})
	if err != nil {
		t.Fatalf("ListTransactionsBySKU: %v", err)
	}
	return list
}

func (f *fixture) reconciles(t *testing.T, skuID id.SKUID) {
	t.Helper()
	r, err := f.ledger.Reconcile(context.Background(), skuID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !r.Consistent {
		t.Errorf("ledger does not reconcile: stock %d vs replay %d, reserved %d vs replay %d",
			r.Stock, r.ReplayedStock, r.Reserved, r.ReplayedReserved)
	}
}

func TestReserveAndFulfil(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "A-1", 0, 0)
	l := f.ledger

	_, err := l.Reserve(ctx, mv(k.ID, 10))
	var short *stockledger.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("Reserve on empty SKU: got %v", err)
	}
	if short.Limit != 0 || short.Requested != 10 || short.Limiting != "available" {
		t.Errorf("shortage = %+v", short)
	}

	if _, err := l.RecordStockIn(ctx, mv(k.ID, 100)); err != nil {
		t.Fatal(err)
	}
	res, err := l.Reserve(ctx, mv(k.ID, 30))
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Available() != 70 {
		t.Errorf("available = %d, want 70", res.SKU.Available())
	}

	res, err = l.FulfillOrder(ctx, mv(k.ID, 30))
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Stock != 70 || res.SKU.Reserved != 0 {
		t.Errorf("after fulfil: stock=%d reserved=%d, want 70/0", res.SKU.Stock, res.SKU.Reserved)
	}
	if res.Transaction.Type != transaction.TypeOut || res.Transaction.ReservedConsumed != 30 {
		t.Errorf("fulfil entry = %+v", res.Transaction)
	}

	// Failed reservation wrote nothing: IN, RESERVED, OUT.
	if n := len(f.entries(t, k.ID)); n != 3 {
		t.Errorf("entries = %d, want 3", n)
	}
	f.reconciles(t, k.ID)
}

func TestFulfilBeyondReserved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "A-2", 20, 0)

	if _, err := f.ledger.Reserve(ctx, mv(k.ID, 5)); err != nil {
		t.Fatal(err)
	}
	_, err := f.ledger.FulfillOrder(ctx, mv(k.ID, 6))
	var short *stockledger.InsufficientStockError
	if !errors.As(err, &short) || short.Limit != 5 || short.Limiting != "reserved" {
		t.Fatalf("got %v", err)
	}

	got, _ := f.ledger.GetSKU(ctx, k.ID)
	if got.Stock != 20 || got.Reserved != 5 {
		t.Errorf("failed fulfil changed state: stock=%d reserved=%d", got.Stock, got.Reserved)
	}
}

func TestMovementSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "B-1", 0, 0)
	l := f.ledger

	steps := []struct {
		name string
		run  func() (*stockledger.Result, error)
	}{
		{"in", func() (*stockledger.Result, error) { return l.RecordStockIn(ctx, mv(k.ID, 100)) }},
		{"out", func() (*stockledger.Result, error) { return l.RecordStockOut(ctx, mv(k.ID, 30)) }},
		{"adjust up", func() (*stockledger.Result, error) { return l.RecordStockAdjustment(ctx, mv(k.ID, 10)) }},
		{"adjust down", func() (*stockledger.Result, error) { return l.RecordStockAdjustment(ctx, mv(k.ID, -5)) }},
		{"reserve", func() (*stockledger.Result, error) { return l.Reserve(ctx, mv(k.ID, 20)) }},
		{"release", func() (*stockledger.Result, error) { return l.Release(ctx, mv(k.ID, 10)) }},
	}
	for _, s := range steps {
		if _, err := s.run(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}

	sum, err := l.GetStockMovementSummary(ctx, k.ID, base, base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	want := stockledger.MovementSummary{
		TotalIn: 100, TotalOut: 30, TotalAdjustments: 5,
		TotalReserved: 20, TotalReleased: 10, NetMovement: 75,
	}
	if sum.TotalIn != want.TotalIn || sum.TotalOut != want.TotalOut ||
		sum.TotalAdjustments != want.TotalAdjustments || sum.TotalReserved != want.TotalReserved ||
		sum.TotalReleased != want.TotalReleased || sum.NetMovement != want.NetMovement {
		t.Errorf("summary = %+v", sum)
	}

	empty, err := l.GetStockMovementSummary(ctx, k.ID, base.Add(2*time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if empty.NetMovement != 0 || empty.TotalIn != 0 {
		t.Errorf("out-of-range summary = %+v", empty)
	}

	_, err = l.GetStockMovementSummary(ctx, k.ID, base.Add(time.Hour), base)
	if stockledger.CodeOf(err) != stockledger.CodeValidation {
		t.Errorf("start after end: got %v", err)
	}

	f.reconciles(t, k.ID)
}

func TestDeactivateReleasesReservations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "C-1", 40, 0)

	if _, err := f.ledger.Reserve(ctx, mv(k.ID, 15)); err != nil {
		t.Fatal(err)
	}
	before := len(f.entries(t, k.ID))

	res, err := f.ledger.DeactivateSKU(ctx, k.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Reserved != 0 || res.SKU.Active {
		t.Errorf("after deactivate: reserved=%d active=%v", res.SKU.Reserved, res.SKU.Active)
	}

	list := f.entries(t, k.ID)
	if len(list) != before+1 {
		t.Fatalf("entries = %d, want %d", len(list), before+1)
	}
	last := list[len(list)-1]
	if last.Type != transaction.TypeReleased || last.Quantity != 15 {
		t.Errorf("release entry = %s %d", last.Type, last.Quantity)
	}

	_, err = f.ledger.Reserve(ctx, mv(k.ID, 1))
	if !errors.Is(err, stockledger.ErrSKUInactive) || !stockledger.IsBusinessRule(err) {
		t.Errorf("reserve on inactive SKU: got %v", err)
	}

	// Nothing reserved: no release entry.
	if _, err := f.ledger.DeactivateSKU(ctx, k.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if n := len(f.entries(t, k.ID)); n != before+1 {
		t.Errorf("second deactivate wrote an entry: %d", n)
	}
	f.reconciles(t, k.ID)
}

func TestRemoveStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "D-1", 50, 0)

	_, err := f.ledger.RemoveStock(ctx, mv(k.ID, 100))
	var short *stockledger.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("got %v", err)
	}
	if short.Requested != 100 || short.Limit != 50 {
		t.Errorf("shortage = %+v", short)
	}
	got, _ := f.ledger.GetSKU(ctx, k.ID)
	if got.Stock != 50 {
		t.Errorf("stock changed to %d", got.Stock)
	}

	res, err := f.ledger.RemoveStock(ctx, mv(k.ID, 50))
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Stock != 0 || res.Transaction.Type != transaction.TypeOut {
		t.Errorf("after remove: stock=%d type=%s", res.SKU.Stock, res.Transaction.Type)
	}
}

func TestStockOutClampsAtZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "E-1", 10, 0)

	res, err := f.ledger.RecordStockOut(ctx, mv(k.ID, 25))
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Stock != 0 {
		t.Errorf("stock = %d, want 0", res.SKU.Stock)
	}
	if res.Transaction.Quantity != 25 {
		t.Errorf("entry quantity = %d, want requested 25", res.Transaction.Quantity)
	}

	res, err = f.ledger.RecordStockAdjustment(ctx, mv(k.ID, -7))
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Stock != 0 {
		t.Errorf("stock = %d after negative adjustment", res.SKU.Stock)
	}
	f.reconciles(t, k.ID)
}

func TestReleaseCapsAtReserved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "F-1", 10, 0)

	if _, err := f.ledger.Reserve(ctx, mv(k.ID, 4)); err != nil {
		t.Fatal(err)
	}
	res, err := f.ledger.Release(ctx, mv(k.ID, 400))
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Reserved != 0 || res.Transaction.Quantity != 4 {
		t.Errorf("reserved=%d released=%d", res.SKU.Reserved, res.Transaction.Quantity)
	}

	// Nothing left: still succeeds, records zero.
	res, err = f.ledger.Release(ctx, mv(k.ID, 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Transaction.Quantity != 0 {
		t.Errorf("released = %d, want 0", res.Transaction.Quantity)
	}
	f.reconciles(t, k.ID)
}

func TestAvailableInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "G-1", 5, 3)
	l := f.ledger

	ops := []func() (*stockledger.Result, error){
		func() (*stockledger.Result, error) { return l.RecordStockIn(ctx, mv(k.ID, 12)) },
		func() (*stockledger.Result, error) { return l.Reserve(ctx, mv(k.ID, 9)) },
		func() (*stockledger.Result, error) { return l.RecordStockOut(ctx, mv(k.ID, 14)) },
		func() (*stockledger.Result, error) { return l.Reserve(ctx, mv(k.ID, 1)) },
		func() (*stockledger.Result, error) { return l.FulfillOrder(ctx, mv(k.ID, 4)) },
		func() (*stockledger.Result, error) { return l.RecordStockAdjustment(ctx, mv(k.ID, -50)) },
		func() (*stockledger.Result, error) { return l.FulfillOrder(ctx, mv(k.ID, 5)) },
		func() (*stockledger.Result, error) { return l.AddStock(ctx, mv(k.ID, 8)) },
		func() (*stockledger.Result, error) { return l.Release(ctx, mv(k.ID, 2)) },
		func() (*stockledger.Result, error) { return l.RemoveStock(ctx, mv(k.ID, 9)) },
		func() (*stockledger.Result, error) { return l.Reserve(ctx, mv(k.ID, 8)) },
	}

	for i, op := range ops {
		_, _ = op() // rejected operations must leave the invariant intact too
		got, err := l.GetSKU(ctx, k.ID)
		if err != nil {
			t.Fatal(err)
		}
		if want := max(0, got.Stock-got.Reserved); got.Available() != want {
			t.Errorf("step %d: available=%d, want %d", i, got.Available(), want)
		}
		if got.Stock < 0 || got.Reserved < 0 {
			t.Errorf("step %d: negative quantity stock=%d reserved=%d", i, got.Stock, got.Reserved)
		}
		f.reconciles(t, k.ID)
	}
}

func TestMovementValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "H-1", 10, 0)
	l := f.ledger
	long := string(make([]byte, 1001))

	tests := []struct {
		name  string
		run   func(context.Context, stockledger.Movement) (*stockledger.Result, error)
		m     stockledger.Movement
		code  string
		field string
	}{
		{"blank performer", l.RecordStockIn, stockledger.Movement{SKUID: k.ID, Quantity: 1, PerformedBy: "  "}, stockledger.CodeValidation, "performed_by"},
		{"zero quantity", l.RecordStockIn, mv(k.ID, 0), stockledger.CodeValidation, "quantity"},
		{"negative quantity", l.Reserve, mv(k.ID, -1), stockledger.CodeValidation, "quantity"},
		{"zero adjustment", l.RecordStockAdjustment, mv(k.ID, 0), stockledger.CodeValidation, "quantity"},
		{"reason too long", l.RecordStockOut, stockledger.Movement{SKUID: k.ID, Quantity: 1, Reason: long, PerformedBy: "x"}, stockledger.CodeValidation, "reason"},
		{"unknown sku", l.RecordStockIn, mv(id.NewSKUID(), 1), stockledger.CodeNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run(ctx, tt.m)
			if got := stockledger.CodeOf(err); got != tt.code {
				t.Fatalf("code = %q (%v), want %q", got, err, tt.code)
			}
			if tt.field == "" {
				return
			}
			var ve stockledger.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	if n := len(f.entries(t, k.ID)); n != 1 {
		t.Errorf("rejected movements wrote entries: %d", n)
	}
}

func TestCreateSKU(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	k := f.sku(t, "I-1", 25, 5)
	if k.Stock != 25 || !k.Active || k.Version < 1 {
		t.Errorf("created = %+v", k)
	}
	list := f.entries(t, k.ID)
	if len(list) != 1 || list[0].Type != transaction.TypeIn || list[0].Reason != "Initial stock" {
		t.Fatalf("initial entries = %+v", list)
	}

	inactive := seedProduct(t, f.store, false)

	tests := []struct {
		name string
		in   stockledger.NewSKU
		code string
	}{
		{"duplicate code", stockledger.NewSKU{Code: "I-1", ProductID: f.product, PerformedBy: "x"}, stockledger.CodeBusinessRule},
		{"unknown product", stockledger.NewSKU{Code: "I-2", ProductID: id.NewProductID(), PerformedBy: "x"}, stockledger.CodeNotFound},
		{"blank code", stockledger.NewSKU{Code: " ", ProductID: f.product, PerformedBy: "x"}, stockledger.CodeValidation},
		{"negative stock", stockledger.NewSKU{Code: "I-3", ProductID: f.product, InitialStock: -1, PerformedBy: "x"}, stockledger.CodeValidation},
		{"negative price", stockledger.NewSKU{Code: "I-4", ProductID: f.product, Price: decimal.NewFromInt(-1), PerformedBy: "x"}, stockledger.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateSKU(ctx, tt.in)
			if got := stockledger.CodeOf(err); got != tt.code {
				t.Errorf("code = %q (%v), want %q", got, err, tt.code)
			}
		})
	}

	res, err := f.ledger.CreateSKU(ctx, stockledger.NewSKU{Code: "I-5", ProductID: inactive, PerformedBy: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.Active || res.Transaction != nil {
		t.Errorf("SKU under inactive product: active=%v tx=%v", res.SKU.Active, res.Transaction)
	}
	_, err = f.ledger.ActivateSKU(ctx, res.SKU.ID, "x")
	if !errors.Is(err, stockledger.ErrProductInactive) {
		t.Errorf("activate under inactive product: got %v", err)
	}
}

func TestDeleteSKU(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "J-1", 10, 0)

	if _, err := f.ledger.Reserve(ctx, mv(k.ID, 3)); err != nil {
		t.Fatal(err)
	}
	res, err := f.ledger.DeleteSKU(ctx, k.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if res.SKU.DeletedAt == nil || res.Transaction == nil || res.Transaction.Quantity != 3 {
		t.Errorf("delete result = %+v", res)
	}

	if _, err := f.ledger.GetSKU(ctx, k.ID); !stockledger.IsNotFound(err) {
		t.Errorf("deleted SKU still visible: %v", err)
	}
	if _, err := f.ledger.DeleteSKU(ctx, k.ID, "tester"); !stockledger.IsNotFound(err) {
		t.Errorf("second delete: %v", err)
	}

	// History is retained and the code is free again.
	if n := len(f.entries(t, k.ID)); n != 3 {
		t.Errorf("entries = %d, want 3", n)
	}
	f.sku(t, "J-1", 0, 0)
}

func TestUpdateReorderSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.sku(t, "K-1", 10, 0)

	got, err := f.ledger.UpdateReorderSettings(ctx, k.ID, 12, 40)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReorderPoint != 12 || got.ReorderQuantity != 40 || !got.IsLowOnStock() {
		t.Errorf("settings = %d/%d low=%v", got.ReorderPoint, got.ReorderQuantity, got.IsLowOnStock())
	}

	_, err = f.ledger.UpdateReorderSettings(ctx, k.ID, -1, 0)
	if stockledger.CodeOf(err) != stockledger.CodeValidation {
		t.Errorf("negative point: %v", err)
	}
	if n := len(f.entries(t, k.ID)); n != 1 {
		t.Errorf("settings change wrote entries: %d", n)
	}
}

func TestStockListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.ledger

	empty := f.sku(t, "L-1", 0, 0)
	low := f.sku(t, "L-2", 4, 5)
	f.sku(t, "L-3", 50, 5)
	gone := f.sku(t, "L-4", 0, 0)
	if _, err := l.DeactivateSKU(ctx, gone.ID, "x"); err != nil {
		t.Fatal(err)
	}

	lows, err := l.ListLowStock(ctx, types.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lows) != 2 || lows[0].ID.String() != empty.ID.String() || lows[1].ID.String() != low.ID.String() {
		t.Errorf("low stock = %v", codes(lows))
	}

	outs, err := l.ListOutOfStock(ctx, types.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 1 || outs[0].Code != "L-1" {
		t.Errorf("out of stock = %v", codes(outs))
	}

	info, err := l.GetCurrentStockInfo(ctx, low.ID)
	if err != nil {
		t.Fatal(err)
	}
	if info.Stock != 4 || info.Available != 4 || !info.IsLowOnStock || info.IsOutOfStock {
		t.Errorf("info = %+v", info)
	}
}

func codes(list []*sku.SKU) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Code
	}
	return out
}

func TestTransactionListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.ledger
	a := f.sku(t, "M-1", 0, 0)
	b := f.sku(t, "M-2", 0, 0)

	order := stockledger.Movement{SKUID: a.ID, Quantity: 5, ReferenceID: "PO-7", ReferenceType: "purchase_order", PerformedBy: "x"}
	if _, err := l.RecordStockIn(ctx, order); err != nil {
		t.Fatal(err)
	}
	order.SKUID = b.ID
	if _, err := l.RecordStockIn(ctx, order); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reserve(ctx, mv(a.ID, 2)); err != nil {
		t.Fatal(err)
	}

	byRef, err := l.ListTransactionsByReference(ctx, "PO-7", types.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(byRef) != 2 || !byRef[0].CreatedAt.Before(byRef[1].CreatedAt) {
		t.Errorf("by reference = %d entries", len(byRef))
	}

	byType, err := l.ListTransactionsByType(ctx, transaction.TypeReserved, types.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 1 || byType[0].SKUID.String() != a.ID.String() {
		t.Errorf("by type = %+v", byType)
	}

	page, err := l.ListTransactionsBySKU(ctx, a.ID, types.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Type != transaction.TypeReserved {
		t.Errorf("page = %+v", page)
	}

	// Inclusive bounds: exactly the first entry's timestamp.
	first := byRef[0].CreatedAt
	ranged, err := l.ListTransactionsBySKUAndDateRange(ctx, a.ID, first, first, types.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 1 {
		t.Errorf("inclusive range = %d entries", len(ranged))
	}

	all, err := l.ListTransactionsByDateRange(ctx, base, base.Add(time.Hour), types.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("date range = %d entries", len(all))
	}

	errCases := []struct {
		name string
		run  func() error
	}{
		{"blank reference", func() error { _, err := l.ListTransactionsByReference(ctx, " ", types.ListOpts{}); return err }},
		{"unknown type", func() error { _, err := l.ListTransactionsByType(ctx, "MOVED", types.ListOpts{}); return err }},
		{"inverted range", func() error {
			_, err := l.ListTransactionsByDateRange(ctx, base.Add(time.Hour), base, types.ListOpts{})
			return err
		}},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, stockledger.ErrInvalidInput) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestLedgerOnSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "stock.db"))
	if err != nil {
		t.Fatal(err)
	}
	l := stockledger.New(s, stockledger.WithLogger(quietLogger()))
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	p := &product.Product{Entity: types.NewEntity(), ID: id.NewProductID(), Name: "Cable", Active: true}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	created, err := l.CreateSKU(ctx, stockledger.NewSKU{Code: "CBL-2M", ProductID: p.ID, InitialStock: 50, PerformedBy: "x"})
	if err != nil {
		t.Fatal(err)
	}
	k := created.SKU

	if _, err := l.Reserve(ctx, mv(k.ID, 20)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.FulfillOrder(ctx, mv(k.ID, 15)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reserve(ctx, mv(k.ID, 100)); !errors.Is(err, stockledger.ErrInsufficientStock) {
		t.Fatalf("oversized reserve: %v", err)
	}

	got, err := l.GetSKU(ctx, k.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stock != 35 || got.Reserved != 5 || got.Version != k.Version+2 {
		t.Errorf("sku = stock %d reserved %d version %d", got.Stock, got.Reserved, got.Version)
	}

	r, err := l.Reconcile(ctx, k.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Consistent || r.Entries != 3 {
		t.Errorf("reconcile = %+v", r)
	}
}
