package stockledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/store"
)

// TracerName is the instrumentation scope used for operation spans.
const TracerName = "github.com/xraph/stockledger"

// Ledger is the stock ledger engine. It is the only component that both
// mutates SKU aggregates and appends ledger entries.
type Ledger struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	validate *validator.Validate
	clock    func() time.Time

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Configuration
	reorderScanInterval time.Duration
	scanPageSize        int
	skipMigrate         bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		tracer:       otel.Tracer(TracerName),
		validate:     newValidator(),
		clock:        time.Now,
		stopChan:     make(chan struct{}),
		scanPageSize: 500,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		if err := l.plugins.Register(p); err != nil {
			l.logger.Warn("plugin registration failed", "plugin", p.Name(), "error", err)
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = t
	}
}

// WithClock overrides the time source used to stamp entries and entities.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = now
	}
}

// WithReorderScanInterval enables the background reorder scan. Every interval
// it emits OnLowStock for each active SKU at or below its reorder point.
// Zero disables the scan.
func WithReorderScanInterval(d time.Duration) Option {
	return func(l *Ledger) {
		l.reorderScanInterval = d
	}
}

// WithoutMigrate makes Start skip store migrations, for deployments that
// manage the schema out of band. Plugins and workers still start.
func WithoutMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

func (l *Ledger) now() time.Time { return l.clock().UTC() }

// Start migrates the store (unless WithoutMigrate is set), initializes
// plugins and begins background workers.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel

	if l.reorderScanInterval > 0 {
		l.wg.Add(1)
		go l.reorderScanWorker(workerCtx)
	}

	l.logger.Info("stock ledger started",
		"plugins", l.plugins.Count(),
		"reorder_scan_interval", l.reorderScanInterval,
		"migrated", !l.skipMigrate,
	)

	return nil
}

// Stop shuts down background workers, notifies plugins and closes the store.
// It is safe to call more than once.
func (l *Ledger) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.cancel != nil {
			l.cancel()
		}
		l.wg.Wait()

		l.plugins.EmitShutdown(context.Background())
		err = l.store.Close()

		l.logger.Info("stock ledger stopped")
	})
	return err
}

// reorderScanWorker periodically reports low-stock SKUs.
func (l *Ledger) reorderScanWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.reorderScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			n, err := l.ScanLowStock(ctx)
			if err != nil {
				l.logger.Error("reorder scan failed", "error", err)
				continue
			}
			l.logger.Debug("reorder scan complete", "low_stock", n)
		}
	}
}

// ScanLowStock emits OnLowStock for every active SKU at or below its reorder
// point and returns how many were found.
func (l *Ledger) ScanLowStock(ctx context.Context) (int, error) {
	opts := sku.ListOpts{Condition: sku.ConditionLowStock, ActiveOnly: true}
	opts.Limit = l.scanPageSize

	total := 0
	for {
		page, err := l.store.ListSKUs(ctx, opts)
		if err != nil {
			return total, err
		}
		for _, s := range page {
			l.plugins.EmitLowStock(ctx, s)
		}
		total += len(page)
		if len(page) < opts.Limit {
			return total, nil
		}
		opts.Offset += len(page)
	}
}
