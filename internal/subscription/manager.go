// Package subscription implements the subscriber lifecycle: signup,
// removal, and the courtesy emails that follow a new signup.
package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/mailer"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/store"
)

// Status describes the outcome of a subscribe attempt.
type Status int

const (
	// Created means a new subscriber row was inserted.
	Created Status = iota
	// AlreadyExists means the email was on the list before the call.
	// Callers should report this the same way as a fresh signup so the
	// endpoint does not leak membership information.
	AlreadyExists
	// Invalid means the email failed format validation.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ErrInvalidEmail is returned by Check when the supplied address fails
// format validation.
var ErrInvalidEmail = errors.New("subscription: invalid email address")

// SubscriberStore is the slice of the store the manager needs.
// Implementations key rows by the normalized form of the email.
type SubscriberStore interface {
	Insert(ctx context.Context, email, name string) (*domain.Subscriber, error)
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	Count(ctx context.Context) (int, error)
}

// Manager coordinates subscribe/unsubscribe operations and sends the
// welcome and admin-alert emails in the background. Notification
// failures are logged and never surfaced to the subscriber.
type Manager struct {
	store      SubscriberStore
	mailer     mailer.Mailer
	renderer   *mailer.Renderer
	adminEmail string

	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

func NewManager(st SubscriberStore, m mailer.Mailer, r *mailer.Renderer, adminEmail string) *Manager {
	return &Manager{
		store:         st,
		mailer:        m,
		renderer:      r,
		adminEmail:    adminEmail,
		notifyTimeout: 30 * time.Second,
	}
}

// Subscribe validates and inserts the address. On a fresh signup it
// kicks off the welcome and admin-alert emails asynchronously; the
// returned status never depends on whether those emails go out.
func (m *Manager) Subscribe(ctx context.Context, email, name string) (Status, *domain.Subscriber, error) {
	if !domain.ValidEmail(email) {
		return Invalid, nil, nil
	}

	sub, err := m.store.Insert(ctx, email, name)
	if errors.Is(err, store.ErrDuplicate) {
		return AlreadyExists, nil, nil
	}
	if err != nil {
		return Invalid, nil, err
	}

	m.notifyAsync(sub)
	return Created, sub, nil
}

// Unsubscribe removes the address if present. It is idempotent: a
// missing address returns removed=false with no error.
func (m *Manager) Unsubscribe(ctx context.Context, email string) (bool, error) {
	removed, err := m.store.DeleteByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// Check reports whether the address is on the list. The returned
// subscriber is nil when it is not.
func (m *Manager) Check(ctx context.Context, email string) (*domain.Subscriber, error) {
	if !domain.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	return m.store.FindByEmail(ctx, email)
}

// Wait blocks until all in-flight notification emails have finished.
// Used during graceful shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) notifyAsync(sub *domain.Subscriber) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.notifyTimeout)
		defer cancel()

		msg, err := m.renderer.Welcome(sub)
		if err != nil {
			logger.Error("render welcome email", "error", err.Error(), "subscriber", sub.Email)
		} else if !m.mailer.Send(ctx, msg) {
			logger.Warn("welcome email not delivered", "subscriber", sub.Email)
		}

		if m.adminEmail == "" {
			return
		}
		total, err := m.store.Count(ctx)
		if err != nil {
			logger.Warn("subscriber count for admin alert", "error", err.Error())
			return
		}
		alert, err := m.renderer.SubscriberAlert(m.adminEmail, sub, total)
		if err != nil {
			logger.Error("render subscriber alert", "error", err.Error())
			return
		}
		if !m.mailer.Send(ctx, alert) {
			logger.Warn("subscriber alert not delivered", "admin", m.adminEmail)
		}
	}()
}
