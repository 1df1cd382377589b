package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// PostStore provides database operations on the published-post log.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a post store.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// Insert stores a post exactly once, assigning its ID and publish time when
// unset. Posts are immutable after this point.
func (s *PostStore) Insert(ctx context.Context, p *domain.Post) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, excerpt, content, post_url, attachment_url, attachment_name, send_full, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Title, p.Excerpt, p.Content, p.PostURL, p.AttachmentURL, p.AttachmentName, p.SendFull, p.PublishedAt)
	return err
}

// FindAll returns every published post, newest first.
func (s *PostStore) FindAll(ctx context.Context) ([]*domain.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, excerpt, content, post_url, attachment_url, attachment_name, send_full, published_at
		 FROM posts ORDER BY published_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		p := &domain.Post{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.PostURL,
			&p.AttachmentURL, &p.AttachmentName, &p.SendFull, &p.PublishedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
