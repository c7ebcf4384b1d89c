package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLite has no timestamp type; times round-trip as UTC RFC3339Nano text.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// nullTime maps an optional time onto a nullable TEXT column.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseStamps fills created/updated pairs shared by every table.
func parseStamps(what, createdRaw, updatedRaw string, created, updated *time.Time) error {
	var err error
	if *created, err = parseTime(createdRaw); err != nil {
		return fmt.Errorf("parse %s created_at: %w", what, err)
	}
	if *updated, err = parseTime(updatedRaw); err != nil {
		return fmt.Errorf("parse %s updated_at: %w", what, err)
	}
	return nil
}
