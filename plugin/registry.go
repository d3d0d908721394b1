package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onSKUCreated          []OnSKUCreated
	onSKUStatusChanged    []OnSKUStatusChanged
	onTransactionRecorded []OnTransactionRecorded
	onInsufficientStock   []OnInsufficientStock
	onLowStock            []OnLowStock
	onVersionConflict     []OnVersionConflict
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSKUCreated); ok {
		r.onSKUCreated = append(r.onSKUCreated, v)
	}
	if v, ok := p.(OnSKUStatusChanged); ok {
		r.onSKUStatusChanged = append(r.onSKUStatusChanged, v)
	}
	if v, ok := p.(OnTransactionRecorded); ok {
		r.onTransactionRecorded = append(r.onTransactionRecorded, v)
	}
	if v, ok := p.(OnInsufficientStock); ok {
		r.onInsufficientStock = append(r.onInsufficientStock, v)
	}
	if v, ok := p.(OnLowStock); ok {
		r.onLowStock = append(r.onLowStock, v)
	}
	if v, ok := p.(OnVersionConflict); ok {
		r.onVersionConflict = append(r.onVersionConflict, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnSKUCreated", reflect.TypeFor[OnSKUCreated]()},
	{"OnSKUStatusChanged", reflect.TypeFor[OnSKUStatusChanged]()},
	{"OnTransactionRecorded", reflect.TypeFor[OnTransactionRecorded]()},
	{"OnInsufficientStock", reflect.TypeFor[OnInsufficientStock]()},
	{"OnLowStock", reflect.TypeFor[OnLowStock]()},
	{"OnVersionConflict", reflect.TypeFor[OnVersionConflict]()},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	emit(ctx, r, func(r *Registry) []OnInit { return r.onInit }, "OnInit", func(ctx context.Context, p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, func(r *Registry) []OnShutdown { return r.onShutdown }, "OnShutdown", func(ctx context.Context, p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitSKUCreated emits an SKU created event.
func (r *Registry) EmitSKUCreated(ctx context.Context, s *sku.SKU) {
	emit(ctx, r, func(r *Registry) []OnSKUCreated { return r.onSKUCreated }, "OnSKUCreated", func(ctx context.Context, p OnSKUCreated) error {
		return p.OnSKUCreated(ctx, s.Clone())
	})
}

// EmitSKUStatusChanged emits an SKU lifecycle transition.
func (r *Registry) EmitSKUStatusChanged(ctx context.Context, s *sku.SKU, change StatusChange) {
	emit(ctx, r, func(r *Registry) []OnSKUStatusChanged { return r.onSKUStatusChanged }, "OnSKUStatusChanged", func(ctx context.Context, p OnSKUStatusChanged) error {
		return p.OnSKUStatusChanged(ctx, s.Clone(), change)
	})
}

// EmitTransactionRecorded emits one committed ledger entry.
func (r *Registry) EmitTransactionRecorded(ctx context.Context, s *sku.SKU, tx *transaction.Transaction) {
	emit(ctx, r, func(r *Registry) []OnTransactionRecorded { return r.onTransactionRecorded }, "OnTransactionRecorded", func(ctx context.Context, p OnTransactionRecorded) error {
		c := *tx
		return p.OnTransactionRecorded(ctx, s.Clone(), &c)
	})
}

// EmitInsufficientStock emits a rejected movement.
func (r *Registry) EmitInsufficientStock(ctx context.Context, skuID string, requested, limit int64) {
	emit(ctx, r, func(r *Registry) []OnInsufficientStock { return r.onInsufficientStock }, "OnInsufficientStock", func(ctx context.Context, p OnInsufficientStock) error {
		return p.OnInsufficientStock(ctx, skuID, requested, limit)
	})
}

// EmitLowStock emits a low-stock notification.
func (r *Registry) EmitLowStock(ctx context.Context, s *sku.SKU) {
	emit(ctx, r, func(r *Registry) []OnLowStock { return r.onLowStock }, "OnLowStock", func(ctx context.Context, p OnLowStock) error {
		return p.OnLowStock(ctx, s.Clone())
	})
}

// EmitVersionConflict emits a lost optimistic-concurrency race.
func (r *Registry) EmitVersionConflict(ctx context.Context, attempt int) {
	emit(ctx, r, func(r *Registry) []OnVersionConflict { return r.onVersionConflict }, "OnVersionConflict", func(ctx context.Context, p OnVersionConflict) error {
		return p.OnVersionConflict(ctx, attempt)
	})
}

// emit snapshots the cached hook list and calls each plugin in registration
// order. Failures are logged, never returned.
func emit[P Plugin](ctx context.Context, r *Registry, cached func(*Registry) []P, hook string, call func(context.Context, P) error) {
	r.mu.RLock()
	plugins := cached(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error { return call(ctx, p) })
		if err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a context bounded by the
// registry timeout. Plugins should never block the stock pipeline; a hook
// that outlives its deadline sees its context cancelled.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func(context.Context) error) error {
	hctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, p)
			}
		}()
		done <- fn(hctx)
	}()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("plugin timeout: %s", pluginName)
	}
}
