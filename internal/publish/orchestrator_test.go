package publish

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/mailer"
)

type memPosts struct {
	mu    sync.Mutex
	posts []*domain.Post
}

func (p *memPosts) Insert(_ context.Context, post *domain.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	post.ID = "post-1"
	post.PublishedAt = time.Now()
	p.posts = append(p.posts, post)
	return nil
}

type memSubs struct {
	subs []*domain.Subscriber
}

func (s *memSubs) FindAll(_ context.Context) ([]*domain.Subscriber, error) {
	return s.subs, nil
}

type countingCache struct {
	invalidations int
}

func (c *countingCache) Invalidate(_ context.Context) {
	c.invalidations++
}

// flakyMailer refuses delivery to addresses in rejects.
type flakyMailer struct {
	mu      sync.Mutex
	sent    []*mailer.Message
	rejects map[string]bool
}

func (m *flakyMailer) Send(_ context.Context, msg *mailer.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejects[msg.To] {
		return false
	}
	m.sent = append(m.sent, msg)
	return true
}

func threeSubscribers() *memSubs {
	return &memSubs{subs: []*domain.Subscriber{
		{ID: "1", Email: "a@example.com", Name: "A"},
		{ID: "2", Email: "b@example.com", Name: "B"},
		{ID: "3", Email: "c@example.com", Name: "C"},
	}}
}

func newTestOrchestrator(posts *memPosts, subs *memSubs, cache *countingCache, m mailer.Mailer) *Orchestrator {
	r := mailer.NewRenderer("https://news.example.com", "Example Weekly")
	var c Cache
	if cache != nil {
		c = cache
	}
	return NewOrchestrator(posts, subs, c, m, r, "admin@example.com", "s3cret", time.Millisecond)
}

func TestPublishFanOutWithFailures(t *testing.T) {
	posts := &memPosts{}
	cache := &countingCache{}
	mail := &flakyMailer{rejects: map[string]bool{"b@example.com": true}}
	o := newTestOrchestrator(posts, threeSubscribers(), cache, mail)

	res, err := o.Publish(context.Background(), &Request{
		Title:   "Release notes",
		Excerpt: "What shipped this week.",
		PostURL: "https://example.com/posts/release-notes",
		Secret:  "s3cret",
	})
	require.NoError(t, err)

	assert.Equal(t, "post-1", res.PostID)
	assert.Equal(t, 2, res.SentCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, 3, res.TotalRecipients)
	assert.Equal(t, []string{"b@example.com"}, res.FailedRecipients)

	require.Len(t, posts.posts, 1)
	assert.Equal(t, 1, cache.invalidations)

	// Two notifications plus the admin summary.
	require.Len(t, mail.sent, 3)
	summary := mail.sent[2]
	assert.Equal(t, "admin@example.com", summary.To)
	assert.Contains(t, summary.Subject, "2/3 sent")
	assert.Contains(t, summary.HTML, "b@example.com")
}

func TestPublishPersistsBeforeSending(t *testing.T) {
	posts := &memPosts{}
	mail := &flakyMailer{rejects: map[string]bool{
		"a@example.com": true,
		"b@example.com": true,
		"c@example.com": true,
	}}
	o := newTestOrchestrator(posts, threeSubscribers(), nil, mail)

	res, err := o.Publish(context.Background(), &Request{
		Title:   "Total outage",
		PostURL: "https://example.com/posts/outage",
		Secret:  "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SentCount)
	assert.Equal(t, 3, res.FailedCount)
	assert.Len(t, posts.posts, 1, "post must survive a full delivery outage")
}

func TestPublishRejectsBadSecret(t *testing.T) {
	posts := &memPosts{}
	mail := &flakyMailer{}
	o := newTestOrchestrator(posts, threeSubscribers(), nil, mail)

	_, err := o.Publish(context.Background(), &Request{
		Title:   "Sneaky",
		PostURL: "https://example.com/x",
		Secret:  "wrong",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, posts.posts)
	assert.Empty(t, mail.sent)
}

func TestPublishRejectsWhenSecretUnconfigured(t *testing.T) {
	r := mailer.NewRenderer("https://news.example.com", "Example Weekly")
	o := NewOrchestrator(&memPosts{}, threeSubscribers(), nil, &flakyMailer{}, r, "", "", time.Millisecond)

	_, err := o.Publish(context.Background(), &Request{
		Title:   "Anything",
		PostURL: "https://example.com/x",
		Secret:  "",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPublishValidation(t *testing.T) {
	posts := &memPosts{}
	o := newTestOrchestrator(posts, threeSubscribers(), nil, &flakyMailer{})

	_, err := o.Publish(context.Background(), &Request{PostURL: "https://example.com/x", Secret: "s3cret"})
	assert.ErrorIs(t, err, ErrMissingTitle)

	_, err = o.Publish(context.Background(), &Request{Title: "No link", Secret: "s3cret"})
	assert.ErrorIs(t, err, ErrMissingPostURL)

	assert.Empty(t, posts.posts)
}

func TestPublishExcerptVsFullContent(t *testing.T) {
	mail := &flakyMailer{}
	o := newTestOrchestrator(&memPosts{}, &memSubs{subs: []*domain.Subscriber{
		{ID: "1", Email: "a@example.com"},
	}}, nil, mail)

	_, err := o.Publish(context.Background(), &Request{
		Title:    "Long read",
		Excerpt:  "Short teaser.",
		Content:  "<p>The whole story.</p>",
		PostURL:  "https://example.com/posts/long-read",
		SendFull: true,
		Secret:   "s3cret",
	})
	require.NoError(t, err)

	require.NotEmpty(t, mail.sent)
	body := mail.sent[0].HTML
	assert.Contains(t, body, "The whole story.")
	assert.False(t, strings.Contains(body, "Short teaser."), "full sends should not fall back to the excerpt")
}
