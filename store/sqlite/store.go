package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	ledgerstore "github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/transaction"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// builder is satisfied by both *sqlitedriver.SqliteDB and *sqlitedriver.SqliteTx.
type builder interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
}

// Store implements store.Store using SQLite via Grove ORM. Open limits the
// pool to one connection, so units of work are serialised by the handle
// itself.
type Store struct {
	*queries
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	sdb := sqlitedriver.Unwrap(db)
	return &Store{queries: &queries{b: sdb}, db: db, sdb: sdb}
}

// Open opens (or creates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("stockledger/sqlite: open: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("stockledger/sqlite: open grove: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// RunInTx runs fn inside a database transaction. fn must only use tx; calling
// back into the Store while the connection is held blocks.
func (s *Store) RunInTx(ctx context.Context, fn ledgerstore.TxFunc) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &queries{b: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("stockledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("stockledger/sqlite: %w: %w", stockledger.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// queries implements store.Tx against the handle or an open transaction.
type queries struct {
	b builder
}

// ==================== SKU Store ====================

func (s *queries) CreateSKU(ctx context.Context, k *sku.SKU) error {
	_, err := s.b.NewInsert(toSKUModel(k)).Exec(ctx)
	if isUniqueViolation(err) {
		return stockledger.ErrAlreadyExists
	}
	return err
}

func (s *queries) GetSKU(ctx context.Context, skuID id.SKUID) (*sku.SKU, error) {
	return s.getSKU(ctx, "id = ?", skuID.String())
}

func (s *queries) GetSKUByCode(ctx context.Context, code string) (*sku.SKU, error) {
	return s.getSKU(ctx, "code = ?", code)
}

func (s *queries) getSKU(ctx context.Context, where string, arg any) (*sku.SKU, error) {
	m := new(skuModel)
	err := s.b.NewSelect(m).
		Where(where, arg).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stockledger.ErrSKUNotFound
		}
		return nil, err
	}
	return fromSKUModel(m)
}

func (s *queries) UpdateSKU(ctx context.Context, k *sku.SKU) error {
	m := toSKUModel(k)
	res, err := s.b.NewUpdate((*skuModel)(nil)).
		Set("price = ?", m.Price).
		Set("cost = ?", m.Cost).
		Set("stock = ?", m.Stock).
		Set("reserved = ?", m.Reserved).
		Set("reorder_point = ?", m.ReorderPoint).
		Set("reorder_quantity = ?", m.ReorderQuantity).
		Set("active = ?", m.Active).
		Set("deleted_at = ?", m.DeletedAt).
		Set("updated_at = ?", m.UpdatedAt).
		Set("version = version + 1").
		Where("id = ?", m.ID).
		Where("version = ?", m.Version).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetSKU(ctx, k.ID); err != nil {
			return err
		}
		return stockledger.ErrVersionConflict
	}
	k.Version++
	return nil
}

func (s *queries) ListSKUs(ctx context.Context, opts sku.ListOpts) ([]*sku.SKU, error) {
	var models []skuModel
	q := s.b.NewSelect(&models).Where("deleted_at IS NULL")
	if opts.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	switch opts.Condition {
	case sku.ConditionLowStock:
		q = q.Where("stock <= reorder_point")
	case sku.ConditionOutOfStock:
		q = q.Where("stock = 0")
	}
	q = q.OrderExpr("code ASC")
	if limit, offset, ok := page(opts.Limit, opts.Offset); ok {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*sku.SKU, 0, len(models))
	for i := range models {
		k, err := fromSKUModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, k)
	}
	return result, nil
}

// ==================== Transaction Store ====================

func (s *queries) AppendTransaction(ctx context.Context, t *transaction.Transaction) error {
	_, err := s.b.NewInsert(toTransactionModel(t)).Exec(ctx)
	if isUniqueViolation(err) {
		return stockledger.ErrAlreadyExists
	}
	return err
}

func (s *queries) ListTransactions(ctx context.Context, opts transaction.QueryOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	q := s.b.NewSelect(&models)
	if !opts.SKUID.IsNil() {
		q = q.Where("sku_id = ?", opts.SKUID.String())
	}
	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.ReferenceID != "" {
		q = q.Where("reference_id = ?", opts.ReferenceID)
	}
	if !opts.Start.IsZero() {
		q = q.Where("created_at >= ?", opts.Start.UnixNano())
	}
	if !opts.End.IsZero() {
		q = q.Where("created_at <= ?", opts.End.UnixNano())
	}
	q = q.OrderExpr("created_at ASC, sequence ASC, id ASC")
	if limit, offset, ok := page(opts.Limit, opts.Offset); ok {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*transaction.Transaction, 0, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// ==================== Product Store ====================

func (s *queries) CreateProduct(ctx context.Context, p *product.Product) error {
	_, err := s.b.NewInsert(toProductModel(p)).Exec(ctx)
	if isUniqueViolation(err) {
		return stockledger.ErrAlreadyExists
	}
	return err
}

func (s *queries) GetProduct(ctx context.Context, productID id.ProductID) (*product.Product, error) {
	m := new(productModel)
	err := s.b.NewSelect(m).
		Where("id = ?", productID.String()).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stockledger.ErrProductNotFound
		}
		return nil, err
	}
	return fromProductModel(m)
}

// ==================== Helpers ====================

// page maps list options onto LIMIT/OFFSET. SQLite rejects an OFFSET
// without a LIMIT, so an offset alone is paired with an unbounded limit.
func page(limit, offset int) (int, int, bool) {
	if limit <= 0 && offset <= 0 {
		return 0, 0, false
	}
	if limit <= 0 {
		limit = math.MaxInt
	}
	return limit, offset, true
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
