package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/mailer"
	"github.com/ignite/newsletter/internal/publish"
	"github.com/ignite/newsletter/internal/store"
	"github.com/ignite/newsletter/internal/subscription"
	"github.com/ignite/newsletter/internal/uploads"
)

type fakeBackend struct {
	mu    sync.Mutex
	subs  map[string]*domain.Subscriber
	posts []*domain.Post
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{subs: make(map[string]*domain.Subscriber)}
}

func (f *fakeBackend) Insert(_ context.Context, email, name string) (*domain.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.NormalizeEmail(email)
	if _, ok := f.subs[key]; ok {
		return nil, store.ErrDuplicate
	}
	sub := &domain.Subscriber{ID: key, Email: key, Name: name, CreatedAt: time.Now()}
	f.subs[key] = sub
	return sub, nil
}

func (f *fakeBackend) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[domain.NormalizeEmail(email)], nil
}

func (f *fakeBackend) DeleteByEmail(_ context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.NormalizeEmail(email)
	if _, ok := f.subs[key]; !ok {
		return 0, nil
	}
	delete(f.subs, key)
	return 1, nil
}

func (f *fakeBackend) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs), nil
}

func (f *fakeBackend) FindAll(_ context.Context) ([]*domain.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Subscriber, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeBackend) InsertPost(_ context.Context, p *domain.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = "post-1"
	p.PublishedAt = time.Now()
	f.posts = append(f.posts, p)
	return nil
}

func (f *fakeBackend) List(_ context.Context) ([]*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts, nil
}

type postInserter struct{ b *fakeBackend }

func (p postInserter) Insert(ctx context.Context, post *domain.Post) error {
	return p.b.InsertPost(ctx, post)
}

type nullMailer struct{}

func (nullMailer) Send(context.Context, *mailer.Message) bool { return true }

func newTestHandler(t *testing.T) (http.Handler, *fakeBackend, *subscription.Manager) {
	t.Helper()
	b := newFakeBackend()
	r := mailer.NewRenderer("https://news.example.com", "Example Weekly")
	mgr := subscription.NewManager(b, nullMailer{}, r, "admin@example.com")
	orch := publish.NewOrchestrator(postInserter{b}, b, nil, nullMailer{}, r, "admin@example.com", "s3cret", time.Millisecond)
	up, err := uploads.NewLocalStore(t.TempDir(), "https://news.example.com")
	require.NoError(t, err)
	h := NewHandlers(mgr, orch, b, up)
	return Routes(h, up.Dir()), b, mgr
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubscribeEndpoint(t *testing.T) {
	h, b, mgr := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "jane@example.com", Name: "Jane"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	mgr.Wait()

	sub, _ := b.FindByEmail(context.Background(), "jane@example.com")
	require.NotNil(t, sub)

	// Repeat signups look like success.
	rec = doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "JANE@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	mgr.Wait()

	rec = doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnsubscribeEndpoint(t *testing.T) {
	h, _, mgr := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "jane@example.com"})
	mgr.Wait()

	rec := doJSON(t, h, http.MethodPost, "/api/unsubscribe", UnsubscribeRequest{Email: "jane@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"removed":true`)

	rec = doJSON(t, h, http.MethodPost, "/api/unsubscribe", UnsubscribeRequest{Email: "jane@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"removed":false`)
}

func TestSubscriptionEndpoint(t *testing.T) {
	h, _, mgr := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "jane@example.com"})
	mgr.Wait()

	rec := doJSON(t, h, http.MethodGet, "/api/subscription?email=jane%40example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscribed":true`)

	rec = doJSON(t, h, http.MethodGet, "/api/subscription?email=nobody%40example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscribed":false`)

	rec = doJSON(t, h, http.MethodGet, "/api/subscription", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishEndpointJSON(t *testing.T) {
	h, b, mgr := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "jane@example.com"})
	mgr.Wait()

	rec := doJSON(t, h, http.MethodPost, "/api/publish", PublishRequest{
		Title:   "Hello",
		Excerpt: "First post.",
		PostURL: "https://example.com/posts/hello",
		Secret:  "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res publish.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.SentCount)
	assert.Equal(t, 1, res.TotalRecipients)
	require.Len(t, b.posts, 1)
}

func TestPublishEndpointSecretHeader(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body, _ := json.Marshal(PublishRequest{Title: "Hello", PostURL: "https://example.com/x"})
	req := httptest.NewRequest(http.MethodPost, "/api/publish", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Publish-Secret", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/publish", PublishRequest{
		Title:   "Hello",
		PostURL: "https://example.com/x",
		Secret:  "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublishEndpointMultipartAttachment(t *testing.T) {
	h, b, _ := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "With attachment"))
	require.NoError(t, mw.WriteField("post_url", "https://example.com/posts/att"))
	require.NoError(t, mw.WriteField("send_full", "1"))
	require.NoError(t, mw.WriteField("secret", "s3cret"))
	fw, err := mw.CreateFormFile("attachment", "notes.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/publish", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, b.posts, 1)
	post := b.posts[0]
	assert.True(t, post.SendFull)
	assert.Equal(t, "notes.pdf", post.AttachmentName)
	assert.True(t, strings.Contains(post.AttachmentURL, "/uploads/"), post.AttachmentURL)
}

func TestPostsEndpoint(t *testing.T) {
	h, b, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)

	b.posts = append(b.posts, &domain.Post{ID: "p1", Title: "Hello", PostURL: "https://example.com/x"})
	rec = doJSON(t, h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), "Hello")
}

func TestHealthEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnsubscribeLink(t *testing.T) {
	h, _, mgr := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/api/subscribe", SubscribeRequest{Email: "jane@example.com"})
	mgr.Wait()

	rec := doJSON(t, h, http.MethodGet, "/unsubscribe?email=jane%40example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsubscribed")

	rec = doJSON(t, h, http.MethodGet, "/unsubscribe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
