package store

import (
	"context"

	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

// Tx is the storage surface available inside a unit of work.
// Every call made through a Tx commits or rolls back together.
type Tx interface {
	sku.Store
	transaction.Store
	product.Store
}

// TxFunc is the body of a unit of work.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the unified storage interface for the stock ledger.
// Calling its Tx methods directly runs each call in its own implicit transaction.
type Store interface {
	Tx

	// RunInTx runs fn in a single transaction. If fn returns an error, every
	// write made through tx is rolled back and the error is returned unchanged.
	RunInTx(ctx context.Context, fn TxFunc) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
