// Package memory is an in-process store.Store used by tests and single-node
// deployments. Units of work are serialised; a failed unit restores the state
// captured when it began.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/transaction"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	// mu guards state. Reads share it; writes and units of work hold it exclusively.
	mu    sync.RWMutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

// RunInTx runs fn with exclusive access. Every write made through tx is
// discarded if fn returns an error.
func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state.snapshot()
	if err := fn(ctx, s.state); err != nil {
		s.state = snap
		return err
	}
	return nil
}

// SKU Store implementation
func (s *Store) CreateSKU(ctx context.Context, k *sku.SKU) error {
	return s.write(ctx, func(tx store.Tx) error { return tx.CreateSKU(ctx, k) })
}

func (s *Store) GetSKU(ctx context.Context, skuID id.SKUID) (*sku.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetSKU(ctx, skuID)
}

func (s *Store) GetSKUByCode(ctx context.Context, code string) (*sku.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetSKUByCode(ctx, code)
}

func (s *Store) UpdateSKU(ctx context.Context, k *sku.SKU) error {
	return s.write(ctx, func(tx store.Tx) error { return tx.UpdateSKU(ctx, k) })
}

func (s *Store) ListSKUs(ctx context.Context, opts sku.ListOpts) ([]*sku.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListSKUs(ctx, opts)
}

// Transaction Store implementation
func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) error {
	return s.write(ctx, func(tx store.Tx) error { return tx.AppendTransaction(ctx, t) })
}

func (s *Store) ListTransactions(ctx context.Context, opts transaction.QueryOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListTransactions(ctx, opts)
}

// Product Store implementation
func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	return s.write(ctx, func(tx store.Tx) error { return tx.CreateProduct(ctx, p) })
}

func (s *Store) GetProduct(ctx context.Context, productID id.ProductID) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetProduct(ctx, productID)
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

func (s *Store) write(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.RunInTx(ctx, func(_ context.Context, tx store.Tx) error { return fn(tx) })
}

// state is the unlocked data set. It implements store.Tx and is only ever
// reached through Store, which holds mu.
type state struct {
	skus     map[string]*sku.SKU
	codes    map[string]string // code -> id of the most recent SKU using it
	products map[string]*product.Product
	entries  []*transaction.Transaction
}

func newState() *state {
	return &state{
		skus:     make(map[string]*sku.SKU),
		codes:    make(map[string]string),
		products: make(map[string]*product.Product),
	}
}

// snapshot copies everything mutable. Ledger entries are immutable, so the
// slice header alone preserves them.
func (st *state) snapshot() *state {
	c := &state{
		skus:     make(map[string]*sku.SKU, len(st.skus)),
		codes:    make(map[string]string, len(st.codes)),
		products: make(map[string]*product.Product, len(st.products)),
		entries:  st.entries[:len(st.entries):len(st.entries)],
	}
	for k, v := range st.skus {
		c.skus[k] = v.Clone()
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	for k, v := range st.products {
		p := *v
		c.products[k] = &p
	}
	return c
}

func (st *state) CreateSKU(_ context.Context, k *sku.SKU) error {
	if _, exists := st.skus[k.ID.String()]; exists {
		return stockledger.ErrAlreadyExists
	}
	if owner, exists := st.codes[k.Code]; exists && !st.skus[owner].IsDeleted() {
		return stockledger.ErrAlreadyExists
	}
	st.skus[k.ID.String()] = k.Clone()
	st.codes[k.Code] = k.ID.String()
	return nil
}

func (st *state) GetSKU(_ context.Context, skuID id.SKUID) (*sku.SKU, error) {
	if k, ok := st.skus[skuID.String()]; ok && !k.IsDeleted() {
		return k.Clone(), nil
	}
	return nil, stockledger.ErrSKUNotFound
}

func (st *state) GetSKUByCode(_ context.Context, code string) (*sku.SKU, error) {
	skuID, ok := st.codes[code]
	if !ok {
		return nil, stockledger.ErrSKUNotFound
	}
	k := st.skus[skuID]
	if k.IsDeleted() {
		return nil, stockledger.ErrSKUNotFound
	}
	return k.Clone(), nil
}

func (st *state) UpdateSKU(_ context.Context, k *sku.SKU) error {
	stored, ok := st.skus[k.ID.String()]
	if !ok || stored.IsDeleted() {
		return stockledger.ErrSKUNotFound
	}
	if stored.Version != k.Version {
		return stockledger.ErrVersionConflict
	}
	k.Version++
	st.skus[k.ID.String()] = k.Clone()
	return nil
}

func (st *state) ListSKUs(_ context.Context, opts sku.ListOpts) ([]*sku.SKU, error) {
	result := make([]*sku.SKU, 0)
	for _, k := range st.skus {
		if opts.Matches(k) {
			result = append(result, k.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *sku.SKU) int { return strings.Compare(a.Code, b.Code) })

	start, end := opts.Window(len(result))
	return result[start:end], nil
}

func (st *state) AppendTransaction(_ context.Context, t *transaction.Transaction) error {
	c := *t
	st.entries = append(st.entries, &c)
	return nil
}

func (st *state) ListTransactions(_ context.Context, opts transaction.QueryOpts) ([]*transaction.Transaction, error) {
	result := make([]*transaction.Transaction, 0)
	for _, t := range st.entries {
		if opts.Matches(t) {
			c := *t
			result = append(result, &c)
		}
	}
	slices.SortStableFunc(result, transaction.Compare)

	start, end := opts.Window(len(result))
	return result[start:end], nil
}

func (st *state) CreateProduct(_ context.Context, p *product.Product) error {
	if _, exists := st.products[p.ID.String()]; exists {
		return stockledger.ErrAlreadyExists
	}
	c := *p
	st.products[p.ID.String()] = &c
	return nil
}

func (st *state) GetProduct(_ context.Context, productID id.ProductID) (*product.Product, error) {
	if p, ok := st.products[productID.String()]; ok {
		c := *p
		return &c, nil
	}
	return nil, stockledger.ErrProductNotFound
}
