package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// SubscriberStore provides database operations on the subscriber set.
type SubscriberStore struct {
	db *sql.DB
}

// NewSubscriberStore creates a subscriber store.
func NewSubscriberStore(db *sql.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// Insert creates a subscriber record keyed by the normalized email. It
// returns ErrDuplicate when a record already exists; concurrent inserts for
// the same address are resolved by the unique index, so callers need no
// existence check of their own.
func (s *SubscriberStore) Insert(ctx context.Context, email, name string) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{
		ID:        uuid.New().String(),
		Email:     domain.NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.Email, sub.Name, sub.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FindByEmail looks up a subscriber by normalized email. Returns (nil, nil)
// when no record exists.
func (s *SubscriberStore) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM subscribers WHERE email = $1`,
		domain.NormalizeEmail(email)).
		Scan(&sub.ID, &sub.Email, &sub.Name, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FindAll returns every current subscriber. The publish orchestrator calls
// this once per publish to take its fan-out snapshot.
func (s *SubscriberStore) FindAll(ctx context.Context) ([]*domain.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM subscribers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Subscriber
	for rows.Next() {
		sub := &domain.Subscriber{}
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteByEmail removes the record for the normalized email and reports how
// many rows were removed (0 or 1). Deleting an absent address is not an error.
func (s *SubscriberStore) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE email = $1`, domain.NormalizeEmail(email))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the current number of subscribers.
func (s *SubscriberStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n)
	return n, err
}
