package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	ledgerstore "github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/transaction"
)

// Collection name constants.
const (
	colSKUs         = "stockledger_skus"
	colTransactions = "stockledger_transactions"
	colProducts     = "stockledger_products"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM. Units of work
// use multi-document transactions, which require a replica set.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Open connects to uri and returns a store on database dbName owning the
// connection.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri, mongodriver.WithDatabase(dbName)); err != nil {
		return nil, fmt.Errorf("stockledger/mongo: connect: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("stockledger/mongo: open grove: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// RunInTx runs fn inside a session transaction. The context handed to fn
// carries the session; every call made with it joins the transaction.
func (s *Store) RunInTx(ctx context.Context, fn ledgerstore.TxFunc) error {
	sess, err := s.mdb.Client().StartSession()
	if err != nil {
		return fmt.Errorf("stockledger/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, s)
	})
	return err
}

// Migrate creates indexes for all stock ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("stockledger/mongo: migrate %s indexes: %w: %w", col, stockledger.ErrMigrationFailed, err)
		}
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

// ==================== SKU Store ====================

func (s *Store) CreateSKU(ctx context.Context, k *sku.SKU) error {
	_, err := s.mdb.NewInsert(toSKUModel(k)).Exec(ctx)
	if mongo.IsDuplicateKeyError(err) {
		return stockledger.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("stockledger/mongo: create sku: %w", err)
	}
	return nil
}

func (s *Store) GetSKU(ctx context.Context, skuID id.SKUID) (*sku.SKU, error) {
	return s.findSKU(ctx, bson.M{"_id": skuID.String(), "deleted_at": nil})
}

func (s *Store) GetSKUByCode(ctx context.Context, code string) (*sku.SKU, error) {
	return s.findSKU(ctx, bson.M{"code": code, "deleted_at": nil})
}

func (s *Store) findSKU(ctx context.Context, filter bson.M) (*sku.SKU, error) {
	var m skuModel
	if err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, stockledger.ErrSKUNotFound
		}
		return nil, fmt.Errorf("stockledger/mongo: get sku: %w", err)
	}
	return fromSKUModel(&m)
}

func (s *Store) UpdateSKU(ctx context.Context, k *sku.SKU) error {
	m := toSKUModel(k)
	set := bson.M{
		"price":            m.Price,
		"cost":             m.Cost,
		"stock":            m.Stock,
		"reserved":         m.Reserved,
		"reorder_point":    m.ReorderPoint,
		"reorder_quantity": m.ReorderQuantity,
		"active":           m.Active,
		"deleted_at":       m.DeletedAt,
		"updated_at":       m.UpdatedAt,
		"live_code":        m.LiveCode,
	}

	res, err := s.mdb.NewUpdate((*skuModel)(nil)).
		Filter(bson.M{"_id": m.ID, "version": k.Version, "deleted_at": nil}).
		SetUpdate(bson.M{"$set": set, "$inc": bson.M{"version": 1}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stockledger/mongo: update sku: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetSKU(ctx, k.ID); err != nil {
			return err
		}
		return stockledger.ErrVersionConflict
	}
	k.Version++
	return nil
}

func (s *Store) ListSKUs(ctx context.Context, opts sku.ListOpts) ([]*sku.SKU, error) {
	filter := bson.M{"deleted_at": nil}
	if opts.ActiveOnly {
		filter["active"] = true
	}
	switch opts.Condition {
	case sku.ConditionLowStock:
		filter["$expr"] = bson.M{"$lte": bson.A{"$stock", "$reorder_point"}}
	case sku.ConditionOutOfStock:
		filter["stock"] = 0
	}

	var models []skuModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "code", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("stockledger/mongo: list skus: %w", err)
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

func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) error {
	_, err := s.mdb.NewInsert(toTransactionModel(t)).Exec(ctx)
	if mongo.IsDuplicateKeyError(err) {
		return stockledger.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("stockledger/mongo: append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, opts transaction.QueryOpts) ([]*transaction.Transaction, error) {
	filter := bson.M{}
	if !opts.SKUID.IsNil() {
		filter["sku_id"] = opts.SKUID.String()
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.ReferenceID != "" {
		filter["reference_id"] = opts.ReferenceID
	}
	created := bson.M{}
	if !opts.Start.IsZero() {
		created["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		created["$lte"] = opts.End
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	var models []transactionModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "sequence", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("stockledger/mongo: list transactions: %w", err)
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

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	_, err := s.mdb.NewInsert(toProductModel(p)).Exec(ctx)
	if mongo.IsDuplicateKeyError(err) {
		return stockledger.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("stockledger/mongo: create product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID id.ProductID) (*product.Product, error) {
	var m productModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": productID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, stockledger.ErrProductNotFound
		}
		return nil, fmt.Errorf("stockledger/mongo: get product: %w", err)
	}
	return fromProductModel(&m)
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all stock ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSKUs: {
			{
				Keys: bson.D{{Key: "live_code", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"live_code": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "code", Value: 1}}},
			{Keys: bson.D{{Key: "product_id", Value: 1}}},
		},
		colTransactions: {
			{
				Keys:    bson.D{{Key: "sku_id", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sku_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "reference_id", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
