// Package stockledger provides per-SKU inventory state with an append-only
// transaction log for Go applications.
//
// Stockledger is designed as a library, not a service. Import it directly into
// your Go application and pick a store backend. It provides:
//
//   - On-hand, reserved and available quantities per SKU
//   - One immutable ledger entry for every quantity change
//   - Optimistic concurrency with an opt-in conflict retry helper
//   - Pluggable hooks for audit, metrics and event streaming
//   - PostgreSQL, SQLite, MongoDB and in-memory stores
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/stockledger"
//	    "github.com/xraph/stockledger/store/postgres"
//	)
//
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := stockledger.New(store)
//
//	// Start migrates the store and begins background workers
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// A SKU holds three quantities. Stock is what is physically on hand,
// reserved is what pending orders have claimed, and available is
// max(0, stock-reserved). Every operation changes them inside one unit of
// work together with exactly one ledger entry:
//
//	res, err := l.Reserve(ctx, stockledger.Movement{
//	    SKUID:       skuID,
//	    Quantity:    3,
//	    ReferenceID: "order-1042",
//	    PerformedBy: "checkout",
//	})
//
// Shipping reserved units decrements both reserved and stock:
//
//	res, err = l.FulfillOrder(ctx, stockledger.Movement{SKUID: skuID, Quantity: 3, PerformedBy: "warehouse"})
//
// Concurrent writers on the same SKU lose with ErrVersionConflict. Wrap the
// call in RetryOnConflict to retry with backoff:
//
//	res, err = stockledger.RetryOnConflict(ctx, 0, func(ctx context.Context) (*stockledger.Result, error) {
//	    return l.RecordStockOut(ctx, m)
//	})
//
// # Errors
//
// Failures are typed. Use CodeOf to map any error onto a stable code such as
// INSUFFICIENT_STOCK or VERSION_CONFLICT, and errors.As with
// *InsufficientStockError to read the limiting quantity.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	sku_01h2xcejqtf2nbrexx3vqjhp41   // SKU ID
//	prod_01h2xcejqtf2nbrexx3vqjhp41  // Product ID
//	stx_01h455vb4pex5vsknk084sn02q   // Ledger entry ID
package stockledger
