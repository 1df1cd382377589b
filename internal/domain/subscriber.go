package domain

import "time"

// Subscriber represents a single newsletter recipient. The normalized email
// is the uniqueness key: a subscriber is created on first successful
// subscribe, deleted on unsubscribe, and never otherwise mutated.
type Subscriber struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name,omitempty" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
