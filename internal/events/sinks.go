package events

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"vcard-service/internal/client"
)

// KafkaSink writes events as JSON keyed by transaction id.
type KafkaSink struct {
	producer *client.KafkaProducer
}

func NewKafkaSink(p *client.KafkaProducer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.producer.Produce(ctx, []byte(e.Transaction.ID), payload, map[string]string{
		"event_type": string(e.Type),
		"event_id":   e.ID,
	})
}

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ClickHouseSink appends events to the card event ledger table.
type ClickHouseSink struct {
	conn   *client.ClickHouseClient
	table  string
	insert string
}

func NewClickHouseSink(conn *client.ClickHouseClient, table string) (*ClickHouseSink, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return &ClickHouseSink{
		conn:   conn,
		table:  table,
		insert: fmt.Sprintf("INSERT INTO %s", table),
	}, nil
}

// EnsureTable creates the ledger table when missing.
func (s *ClickHouseSink) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		event_id       String,
		event_type     LowCardinality(String),
		device_id      String,
		user_hash      String,
		transaction_id String,
		platform       LowCardinality(String),
		network        LowCardinality(String),
		bank           LowCardinality(String),
		amount_usd     Float64,
		amount_inr     Int64,
		status         LowCardinality(String),
		occurred_at    DateTime64(3)
	) ENGINE = MergeTree ORDER BY (occurred_at, transaction_id)`, s.table)
	return s.conn.Exec(ctx, ddl)
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

func (s *ClickHouseSink) Publish(ctx context.Context, e Event) error {
	tx := e.Transaction
	row := []any{
		e.ID, string(e.Type), e.DeviceID, e.User,
		tx.ID, tx.Platform, tx.Network, tx.Bank,
		tx.AmountUsd, tx.AmountInr, string(tx.Status),
		e.OccurredAt,
	}
	return s.conn.BatchInsert(ctx, s.insert, [][]any{row})
}

// Recorder keeps every event in memory. It satisfies both Sink and Emitter.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.Emit(e)
	return nil
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
