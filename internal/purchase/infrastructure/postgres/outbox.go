package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Property-Marketplace/pkg/outbox"
)

const OutboxSchema = `CREATE TABLE IF NOT EXISTS outbox (
	id BIGSERIAL PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload JSONB NOT NULL,
	headers JSONB NOT NULL DEFAULT '{}'::jsonb,
	traceparent TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	relay_id TEXT,
	lease_until TIMESTAMPTZ,
	retry_count INT NOT NULL DEFAULT 0,
	last_error TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS outbox_status_idx ON outbox (status, id)`

const aggregateProperty = "property"

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, OutboxSchema)
	return err
}

// LockBatch claims pending events, events whose previous lease ran out and
// failed events still under the retry limit.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
		FROM outbox
		WHERE status = $3
		   OR (status = $4 AND lease_until < now())
		   OR (status = $5 AND retry_count < $2)
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize, outbox.MaxRetries, outbox.StatusPending, outbox.StatusInProgress, outbox.StatusFailed)
	if err != nil {
		return nil, err
	}

	var events []outbox.Event
	for rows.Next() {
		var event outbox.Event
		var headers map[string]string
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &event.Payload, &headers, &event.Traceparent, &event.CreatedAt, &event.RetryCount); err != nil {
			rows.Close()
			return nil, err
		}
		event.Headers = headers
		events = append(events, event)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	_, err = tx.Exec(ctx, `UPDATE outbox SET status=$4, relay_id=$1, lease_until=now() + $2::interval WHERE id = ANY($3)`, relayID, lease.String(), ids, outbox.StatusInProgress)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status=$2, lease_until=NULL WHERE id = ANY($1)`, ids, outbox.StatusSent)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status=$3, last_error=$2, retry_count=retry_count+1, lease_until=NULL WHERE id=$1`, id, errMsg, outbox.StatusFailed)
	return err
}

// Execer is the subset of pgxpool.Pool the publisher writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Publisher records domain events in the outbox table; the relay ships them.
type Publisher struct {
	log    *slog.Logger
	db     Execer
	source string
}

func NewPublisher(log *slog.Logger, db Execer, source string) *Publisher {
	return &Publisher{log: log, db: db, source: source}
}

func (p *Publisher) Publish(ctx context.Context, eventType, aggregateID string, payload any) error {
	event, err := outbox.NewEvent(ctx, aggregateProperty, aggregateID, eventType, payload)
	if err != nil {
		return err
	}
	event = event.WithSource(p.source)
	_, err = p.db.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		event.AggregateType, event.AggregateID, event.Type, event.Payload, event.Headers, event.Traceparent, outbox.StatusPending)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", eventType, err)
	}
	p.log.Debug("event queued", "type", eventType, "aggregate_id", aggregateID)
	return nil
}
