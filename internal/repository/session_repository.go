package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"madamis/backend/internal/model"
)

const sessionColumns = `id, owner_id, title, scheduled_at, created_at, updated_at`

// SessionRepository stores game sessions. The owner_id recorded here is the
// only account allowed to command the session's timer.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.OwnerID,
		session.Title,
		nullTime(session.ScheduledAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListByOwner returns the owner's sessions, newest first.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Session, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE owner_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		ownerID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0, limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*model.Session, error) {
	var session model.Session
	var scheduledAt sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(
		&session.ID,
		&session.OwnerID,
		&session.Title,
		&scheduledAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var err error
	if session.ScheduledAt, err = parseNullTime(scheduledAt); err != nil {
		return nil, fmt.Errorf("parse session scheduled_at: %w", err)
	}
	if err := parseStamps("session", createdAt, updatedAt, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	return &session, nil
}
