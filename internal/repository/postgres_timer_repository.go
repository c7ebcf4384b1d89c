package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"madamis/backend/internal/model"
)

// PostgresTimerRepository keeps timer documents in a JSONB column, with the
// same compare-and-swap contract as TimerRepository.
type PostgresTimerRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTimerRepository(pool *pgxpool.Pool) *PostgresTimerRepository {
	return &PostgresTimerRepository{pool: pool}
}

func (r *PostgresTimerRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS timer_documents (
			session_id TEXT PRIMARY KEY,
			document JSONB NOT NULL,
			version BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure timer_documents: %w", err)
	}
	return nil
}

func (r *PostgresTimerRepository) Get(ctx context.Context, sessionID string) (*model.TimerDocument, error) {
	var payload []byte
	var version int64
	var updatedAt time.Time
	err := r.pool.QueryRow(
		ctx,
		`SELECT document, version, updated_at FROM timer_documents WHERE session_id = $1`,
		sessionID,
	).Scan(&payload, &version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get timer document: %w", err)
	}

	doc, err := decodeTimerDocument(payload, version)
	if err != nil {
		return nil, err
	}
	doc.UpdatedAt = updatedAt.UTC()
	return doc, nil
}

func (r *PostgresTimerRepository) Save(ctx context.Context, doc *model.TimerDocument, expectedVersion int64) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode timer document: %w", err)
	}

	var sql string
	args := []interface{}{doc.SessionID, payload, doc.Version, doc.UpdatedAt.UTC()}
	if expectedVersion == 0 {
		sql = `INSERT INTO timer_documents (session_id, document, version, updated_at)
		       VALUES ($1, $2, $3, $4)
		       ON CONFLICT (session_id) DO NOTHING`
	} else {
		sql = `UPDATE timer_documents
		       SET document = $2, version = $3, updated_at = $4
		       WHERE session_id = $1 AND version = $5`
		args = append(args, expectedVersion)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("save timer document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}
