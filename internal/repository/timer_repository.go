package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"madamis/backend/internal/model"
)

// TimerRepository stores one JSON timer document per session in SQLite.
type TimerRepository struct {
	db *sql.DB
}

func NewTimerRepository(db *sql.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

func (r *TimerRepository) Get(ctx context.Context, sessionID string) (*model.TimerDocument, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT document, version, updated_at
		 FROM timer_documents
		 WHERE session_id = ?`,
		sessionID,
	)
	return scanTimerDocument(row)
}

// Save writes doc if the stored version still equals expectedVersion.
// An expectedVersion of 0 creates the document.
func (r *TimerRepository) Save(ctx context.Context, doc *model.TimerDocument, expectedVersion int64) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode timer document: %w", err)
	}
	updatedAt := formatTime(doc.UpdatedAt)

	var result sql.Result
	if expectedVersion == 0 {
		result, err = r.db.ExecContext(
			ctx,
			`INSERT INTO timer_documents (session_id, document, version, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (session_id) DO NOTHING`,
			doc.SessionID,
			string(payload),
			doc.Version,
			updatedAt,
		)
	} else {
		result, err = r.db.ExecContext(
			ctx,
			`UPDATE timer_documents
			 SET document = ?,
			     version = ?,
			     updated_at = ?
			 WHERE session_id = ? AND version = ?`,
			string(payload),
			doc.Version,
			updatedAt,
			doc.SessionID,
			expectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("save timer document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save timer document rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func scanTimerDocument(s scanner) (*model.TimerDocument, error) {
	var payload string
	var version int64
	var updatedAt string
	if err := s.Scan(&payload, &version, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan timer document: %w", err)
	}

	doc, err := decodeTimerDocument([]byte(payload), version)
	if err != nil {
		return nil, err
	}

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse timer updated_at: %w", err)
	}
	doc.UpdatedAt = parsedUpdatedAt
	return doc, nil
}

// decodeTimerDocument trusts the version column over the JSON copy.
func decodeTimerDocument(payload []byte, version int64) (*model.TimerDocument, error) {
	var doc model.TimerDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode timer document: %w", err)
	}
	doc.Version = version
	if doc.Phases == nil {
		doc.Phases = []model.Phase{}
	}
	if doc.Agenda == nil {
		doc.Agenda = []model.AgendaItem{}
	}
	return &doc, nil
}
