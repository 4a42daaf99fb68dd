package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession stores a new session
func (db *DB) CreateSession(ctx context.Context, session *Session) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)",
		session.ID, session.UserID, session.CreatedAt.Unix(), session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	var (
		session            Session
		createdAt, expires int64
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1", id,
	).Scan(&session.ID, &session.UserID, &createdAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session.CreatedAt = time.Unix(createdAt, 0).UTC()
	session.ExpiresAt = time.Unix(expires, 0).UTC()
	return &session, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}
