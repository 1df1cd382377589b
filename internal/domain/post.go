package domain

import "time"

// Post is a published newsletter entry. Posts are inserted exactly once per
// successful publish call and are immutable afterwards; nothing in this
// service ever deletes one.
type Post struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Excerpt        string    `json:"excerpt,omitempty" db:"excerpt"`
	Content        string    `json:"content,omitempty" db:"content"`
	PostURL        string    `json:"post_url" db:"post_url"`
	AttachmentURL  string    `json:"attachment_url,omitempty" db:"attachment_url"`
	AttachmentName string    `json:"attachment_name,omitempty" db:"attachment_name"`
	SendFull       bool      `json:"send_full" db:"send_full"`
	PublishedAt    time.Time `json:"published_at" db:"published_at"`
}

// DeliveryResult summarizes one fan-out pass. It lives only for the duration
// of a single publish call and is never persisted.
type DeliveryResult struct {
	SentCount        int      `json:"sent_count"`
	FailedRecipients []string `json:"failed_recipients,omitempty"`
	TotalRecipients  int      `json:"total_recipients"`
}

// FailedCount returns the number of recipients whose send attempt failed.
func (r DeliveryResult) FailedCount() int {
	return len(r.FailedRecipients)
}
