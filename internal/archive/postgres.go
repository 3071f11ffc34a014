package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists resolved escalations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS intervention_records (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			priority INT NOT NULL,
			operator_id TEXT,
			queued_at TIMESTAMPTZ NOT NULL,
			transferred_at TIMESTAMPTZ,
			resolved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolution TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_intervention_records_conv_resolved
			ON intervention_records (conversation_id, resolved_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ResolvedAt.IsZero() {
		record.ResolvedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO intervention_records
			(id, conversation_id, request_id, trigger_type, severity, priority,
			 operator_id, queued_at, transferred_at, resolved_at, resolution)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID,
		record.ConversationID,
		record.RequestID,
		record.TriggerType,
		record.Severity,
		record.Priority,
		record.OperatorID,
		record.QueuedAt,
		record.TransferredAt,
		record.ResolvedAt,
		record.Resolution,
	)
	if err != nil {
		return fmt.Errorf("save intervention record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentRecords(ctx context.Context, conversationID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, request_id, trigger_type, severity, priority,
			operator_id, queued_at, transferred_at, resolved_at, resolution
		 FROM intervention_records WHERE conversation_id=$1
		 ORDER BY resolved_at DESC LIMIT $2`,
		conversationID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query intervention records: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		var operatorID *string
		if err := rows.Scan(&r.ID, &r.ConversationID, &r.RequestID, &r.TriggerType,
			&r.Severity, &r.Priority, &operatorID, &r.QueuedAt, &r.TransferredAt,
			&r.ResolvedAt, &r.Resolution); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		if operatorID != nil {
			r.OperatorID = *operatorID
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
