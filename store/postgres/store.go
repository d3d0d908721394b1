package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	ledgerstore "github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/transaction"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// builder is satisfied by both *pgdriver.PgDB and *pgdriver.PgTx.
type builder interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
}

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	*queries
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	pg := pgdriver.Unwrap(db)
	return &Store{queries: &queries{b: pg}, db: db, pg: pg}
}

// Open connects to dsn and returns a store owning the grove database.
func Open(ctx context.Context, dsn string, opts ...driver.Option) (*Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("stockledger/postgres: connect: %w", err)
	}
	db, err := grove.Open(pg)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("stockledger/postgres: open grove: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// RunInTx runs fn inside a database transaction. SKU reads made through tx
// take row locks, so concurrent units of work on one SKU queue instead of
// conflicting.
func (s *Store) RunInTx(ctx context.Context, fn ledgerstore.TxFunc) error {
	tx, err := s.pg.BeginTxQuery(ctx, &driver.TxOptions{IsolationLevel: driver.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &queries{b: tx, lock: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("stockledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("stockledger/postgres: %w: %w", stockledger.ErrMigrationFailed, err)
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

// queries implements store.Tx against the pool or an open transaction.
type queries struct {
	b    builder
	lock bool
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
	q := s.b.NewSelect(m).
		Where(where, arg).
		Where("deleted_at IS NULL")
	if s.lock {
		q = q.ForUpdate()
	}
	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, stockledger.ErrSKUNotFound
		}
		return nil, err
	}
	return fromSKUModel(m)
}

func (s *queries) UpdateSKU(ctx context.Context, k *sku.SKU) error {
	res, err := s.b.NewUpdate((*skuModel)(nil)).
		Set("price = ?", k.Price).
		Set("cost = ?", k.Cost).
		Set("stock = ?", k.Stock).
		Set("reserved = ?", k.Reserved).
		Set("reorder_point = ?", k.ReorderPoint).
		Set("reorder_quantity = ?", k.ReorderQuantity).
		Set("active = ?", k.Active).
		Set("deleted_at = ?", k.DeletedAt).
		Set("updated_at = ?", k.UpdatedAt).
		Set("version = version + 1").
		Where("id = ?", k.ID.String()).
		Where("version = ?", k.Version).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missOrConflict(ctx, k.ID)
	}
	k.Version++
	return nil
}

// missOrConflict tells a vanished row from a stale version after an update
// matched nothing.
func (s *queries) missOrConflict(ctx context.Context, skuID id.SKUID) error {
	n, err := s.b.NewSelect((*skuModel)(nil)).
		Where("id = ?", skuID.String()).
		Where("deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return stockledger.ErrSKUNotFound
	}
	return stockledger.ErrVersionConflict
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
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
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
		q = q.Where("created_at >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("created_at <= ?", opts.End)
	}
	q = q.OrderExpr("created_at ASC, sequence ASC, id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
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
		if isNoRows(err) {
			return nil, stockledger.ErrProductNotFound
		}
		return nil, err
	}
	return fromProductModel(m)
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
