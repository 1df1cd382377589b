// Package publish runs the newsletter send pipeline: persist the post,
// fan the notification out to every subscriber one at a time, and
// report the outcome to the admin.
package publish

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/mailer"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

var (
	// ErrUnauthorized is returned when the publish secret does not match.
	ErrUnauthorized = errors.New("publish: invalid secret")
	// ErrMissingTitle is returned when the post has no title.
	ErrMissingTitle = errors.New("publish: title is required")
	// ErrMissingPostURL is returned when the post has no canonical URL.
	ErrMissingPostURL = errors.New("publish: post URL is required")
)

// Request carries everything needed to publish one post.
type Request struct {
	Title          string
	Excerpt        string
	Content        string
	PostURL        string
	SendFull       bool
	AttachmentURL  string
	AttachmentName string
	Secret         string
}

// Result summarizes a completed publish run.
type Result struct {
	PostID           string   `json:"post_id"`
	SentCount        int      `json:"sent_count"`
	FailedCount      int      `json:"failed_count"`
	TotalRecipients  int      `json:"total_recipients"`
	FailedRecipients []string `json:"failed_recipients,omitempty"`
	AttachmentURL    string   `json:"attachment_url,omitempty"`
}

// Subscribers lists the recipients of a send.
type Subscribers interface {
	FindAll(ctx context.Context) ([]*domain.Subscriber, error)
}

// Posts persists published posts.
type Posts interface {
	Insert(ctx context.Context, p *domain.Post) error
}

// Cache is an optional listing cache invalidated after each publish.
type Cache interface {
	Invalidate(ctx context.Context)
}

// Orchestrator sequences a publish run. Sends are paced by a shared
// limiter so parallel publishes cannot exceed the configured rate.
type Orchestrator struct {
	posts      Posts
	subs       Subscribers
	cache      Cache
	mailer     mailer.Mailer
	renderer   *mailer.Renderer
	adminEmail string
	secret     string
	limiter    *rate.Limiter
}

func NewOrchestrator(posts Posts, subs Subscribers, cache Cache, m mailer.Mailer, r *mailer.Renderer, adminEmail, secret string, sendInterval time.Duration) *Orchestrator {
	if sendInterval <= 0 {
		sendInterval = 100 * time.Millisecond
	}
	return &Orchestrator{
		posts:      posts,
		subs:       subs,
		cache:      cache,
		mailer:     m,
		renderer:   r,
		adminEmail: adminEmail,
		secret:     secret,
		limiter:    rate.NewLimiter(rate.Every(sendInterval), 1),
	}
}

// Publish validates the request, stores the post, then notifies every
// subscriber sequentially. The post is persisted before any email goes
// out, so a delivery failure never loses the post. A canceled context
// abandons the remaining recipients; already-sent emails stand.
func (o *Orchestrator) Publish(ctx context.Context, req *Request) (*Result, error) {
	if err := o.authorize(req.Secret); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, ErrMissingTitle
	}
	if req.PostURL == "" {
		return nil, ErrMissingPostURL
	}

	post := &domain.Post{
		Title:          req.Title,
		Excerpt:        req.Excerpt,
		Content:        req.Content,
		PostURL:        req.PostURL,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
		SendFull:       req.SendFull,
	}
	if err := o.posts.Insert(ctx, post); err != nil {
		return nil, err
	}
	if o.cache != nil {
		o.cache.Invalidate(ctx)
	}

	recipients, err := o.subs.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	res := o.fanOut(ctx, post, recipients)
	o.sendSummary(ctx, post, res)

	logger.Info("post published",
		"post_id", post.ID,
		"title", post.Title,
		"sent", res.SentCount,
		"failed", res.FailedCount(),
		"total", res.TotalRecipients,
	)

	return &Result{
		PostID:           post.ID,
		SentCount:        res.SentCount,
		FailedCount:      res.FailedCount(),
		TotalRecipients:  res.TotalRecipients,
		FailedRecipients: res.FailedRecipients,
		AttachmentURL:    post.AttachmentURL,
	}, nil
}

func (o *Orchestrator) authorize(secret string) error {
	// An unconfigured secret disables publishing outright.
	if o.secret == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(o.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (o *Orchestrator) fanOut(ctx context.Context, post *domain.Post, recipients []*domain.Subscriber) domain.DeliveryResult {
	res := domain.DeliveryResult{TotalRecipients: len(recipients)}
	for _, sub := range recipients {
		if err := o.limiter.Wait(ctx); err != nil {
			logger.Warn("fan-out aborted", "post_id", post.ID, "error", err.Error())
			res.FailedRecipients = append(res.FailedRecipients, sub.Email)
			continue
		}
		msg, err := o.renderer.Notification(post, sub)
		if err != nil {
			logger.Error("render notification", "error", err.Error(), "recipient", sub.Email)
			res.FailedRecipients = append(res.FailedRecipients, sub.Email)
			continue
		}
		if !o.mailer.Send(ctx, msg) {
			res.FailedRecipients = append(res.FailedRecipients, sub.Email)
			continue
		}
		res.SentCount++
	}
	return res
}

func (o *Orchestrator) sendSummary(ctx context.Context, post *domain.Post, res domain.DeliveryResult) {
	if o.adminEmail == "" {
		return
	}
	msg, err := o.renderer.Summary(o.adminEmail, post, res)
	if err != nil {
		logger.Error("render publish summary", "error", err.Error())
		return
	}
	if !o.mailer.Send(ctx, msg) {
		logger.Warn("publish summary not delivered", "admin", o.adminEmail)
	}
}
