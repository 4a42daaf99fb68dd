package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrEmailTaken is returned by InsertUser when the email is already registered
var ErrEmailTaken = errors.New("email already registered")

const userColumns = "id, email, password, secret, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	user := &User{}
	var secret sql.NullString
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &secret, &user.CreatedAt); err != nil {
		return nil, err
	}
	if secret.Valid {
		user.Secret = &secret.String
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email. Returns (nil, nil) when absent.
func (db *DB) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by ID. Returns (nil, nil) when absent.
func (db *DB) FindUserByID(ctx context.Context, id string) (*User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// InsertUserIfAbsent creates a user unless the email is already registered,
// in a single statement. The bool reports whether a row was created; when it
// is false the returned user is nil.
func (db *DB) InsertUserIfAbsent(ctx context.Context, email, credential string) (*User, bool, error) {
	user := NewUser(email, credential)

	inserted, err := scanUser(db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING `+userColumns,
		user.ID, user.Email, user.Password, user.CreatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}
	return inserted, true, nil
}

// InsertUser creates a user and fails with ErrEmailTaken if the email exists
func (db *DB) InsertUser(ctx context.Context, email, credential string) (*User, error) {
	user, created, err := db.InsertUserIfAbsent(ctx, email, credential)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrEmailTaken
	}
	return user, nil
}

// UpdateSecret overwrites the user's secret
func (db *DB) UpdateSecret(ctx context.Context, id, secret string) error {
	if _, err := db.ExecContext(ctx, "UPDATE users SET secret = $1 WHERE id = $2", secret, id); err != nil {
		return fmt.Errorf("update secret: %w", err)
	}
	return nil
}
