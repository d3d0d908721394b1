// Package kafkasink publishes committed stock ledger entries to a Kafka topic.
//
// Messages are keyed by SKU ID so every entry of one SKU lands on the same
// partition in commit order. The current trace context is injected into the
// message headers.
package kafkasink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/sku"
	"github.com/xraph/stockledger/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Sink)(nil)
	_ plugin.OnTransactionRecorded = (*Sink)(nil)
	_ plugin.OnShutdown            = (*Sink)(nil)
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON payload of one published ledger entry.
type Event struct {
	TransactionID    string    `json:"transaction_id"`
	SKUID            string    `json:"sku_id"`
	SKUCode          string    `json:"sku_code"`
	Sequence         int64     `json:"sequence"`
	Type             string    `json:"type"`
	Quantity         int64     `json:"quantity"`
	ReservedConsumed int64     `json:"reserved_consumed,omitempty"`
	ReferenceID      string    `json:"reference_id,omitempty"`
	ReferenceType    string    `json:"reference_type,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	PerformedBy      string    `json:"performed_by"`
	Stock            int64     `json:"stock"`
	Reserved         int64     `json:"reserved"`
	Available        int64     `json:"available"`
	CreatedAt        time.Time `json:"created_at"`
}

// Sink is a plugin that forwards committed ledger entries to Kafka.
type Sink struct {
	writer     MessageWriter
	propagator propagation.TextMapPropagator
	logger     *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// WithPropagator overrides the global text map propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(s *Sink) { s.propagator = p }
}

// New creates a Sink writing through w.
func New(w MessageWriter, opts ...Option) *Sink {
	s := &Sink{
		writer:     w,
		propagator: otel.GetTextMapPropagator(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWriter returns a kafka.Writer for topic that hashes message keys onto
// partitions.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Name implements plugin.Plugin.
func (s *Sink) Name() string { return "kafka-sink" }

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (s *Sink) OnTransactionRecorded(ctx context.Context, k *sku.SKU, t *transaction.Transaction) error {
	msg, err := s.message(ctx, k, t)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Error("kafkasink: publish failed",
			"transaction_id", t.ID.String(),
			"sku_id", k.ID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (s *Sink) OnShutdown(_ context.Context) error {
	return s.writer.Close()
}

func (s *Sink) message(ctx context.Context, k *sku.SKU, t *transaction.Transaction) (kafka.Message, error) {
	payload, err := json.Marshal(Event{
		TransactionID:    t.ID.String(),
		SKUID:            k.ID.String(),
		SKUCode:          k.Code,
		Sequence:         t.Sequence,
		Type:             string(t.Type),
		Quantity:         t.Quantity,
		ReservedConsumed: t.ReservedConsumed,
		ReferenceID:      t.ReferenceID,
		ReferenceType:    t.ReferenceType,
		Reason:           t.Reason,
		PerformedBy:      t.PerformedBy,
		Stock:            k.Stock,
		Reserved:         k.Reserved,
		Available:        k.Available(),
		CreatedAt:        t.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, err
	}

	carrier := propagation.MapCarrier{}
	s.propagator.Inject(ctx, carrier)

	headers := []kafka.Header{{Key: "type", Value: []byte(t.Type)}}
	for _, key := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(carrier.Get(key))})
	}

	return kafka.Message{
		Key:     []byte(k.ID.String()),
		Value:   payload,
		Headers: headers,
		Time:    t.CreatedAt,
	}, nil
}
