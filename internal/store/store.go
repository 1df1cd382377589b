// Package store provides PostgreSQL-backed persistence for subscribers and
// published posts, plus an optional Redis read-through cache for the post
// listing. Both stores are safe for concurrent use; uniqueness of the
// subscriber email is enforced by the database, not by callers.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned by SubscriberStore.Insert when a record already
// exists for the normalized email. Callers treat it as a result variant
// ("already subscribed"), not a failure.
var ErrDuplicate = errors.New("store: duplicate key")

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// EnsureSchema creates the newsletter tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subscribers (
			id         UUID PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS posts (
			id              UUID PRIMARY KEY,
			title           TEXT NOT NULL,
			excerpt         TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL DEFAULT '',
			post_url        TEXT NOT NULL,
			attachment_url  TEXT NOT NULL DEFAULT '',
			attachment_name TEXT NOT NULL DEFAULT '',
			send_full       BOOLEAN NOT NULL DEFAULT FALSE,
			published_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}
