// Package api exposes the newsletter service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/publish"
	"github.com/ignite/newsletter/internal/subscription"
	"github.com/ignite/newsletter/internal/uploads"
)

// PostLister serves the published-post listing, normally backed by the
// Redis read-through cache.
type PostLister interface {
	List(ctx context.Context) ([]*domain.Post, error)
}

// Handlers holds the HTTP endpoints and their collaborators.
type Handlers struct {
	subs    *subscription.Manager
	orch    *publish.Orchestrator
	posts   PostLister
	uploads uploads.Store
}

func NewHandlers(subs *subscription.Manager, orch *publish.Orchestrator, posts PostLister, up uploads.Store) *Handlers {
	return &Handlers{subs: subs, orch: orch, posts: posts, uploads: up}
}

// HandleSubscribe adds an address to the list. A repeat signup gets the
// same success-shaped response as a fresh one so the endpoint cannot be
// used to probe list membership.
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	status, sub, err := h.subs.Subscribe(r.Context(), req.Email, req.Name)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	switch status {
	case subscription.Created:
		httputil.Created(w, map[string]any{
			"message":    "subscribed",
			"subscriber": sub,
		})
	case subscription.AlreadyExists:
		httputil.OK(w, map[string]any{"message": "subscribed"})
	default:
		httputil.BadRequest(w, "invalid email address")
	}
}

// HandleUnsubscribe removes an address. Removing an address that was
// never subscribed is not an error.
func (h *Handlers) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	removed, err := h.subs.Unsubscribe(r.Context(), req.Email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"message": "unsubscribed",
		"removed": removed,
	})
}

// HandleSubscription reports whether ?email= is on the list.
func (h *Handlers) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.BadRequest(w, "email query parameter is required")
		return
	}

	sub, err := h.subs.Check(r.Context(), email)
	if errors.Is(err, subscription.ErrInvalidEmail) {
		httputil.BadRequest(w, "invalid email address")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if sub == nil {
		httputil.OK(w, map[string]any{"subscribed": false})
		return
	}
	httputil.OK(w, map[string]any{
		"subscribed": true,
		"subscriber": sub,
	})
}

// HandlePublish stores a post and fans notifications out to the list.
// It accepts either JSON or multipart form data; an attachment is only
// possible with the multipart form. The publish secret comes from the
// X-Publish-Secret header or the secret field.
func (h *Handlers) HandlePublish(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePublish(w, r)
	if !ok {
		return
	}
	if req.Secret == "" {
		req.Secret = r.Header.Get("X-Publish-Secret")
	}

	res, err := h.orch.Publish(r.Context(), req)
	switch {
	case errors.Is(err, publish.ErrUnauthorized):
		httputil.Unauthorized(w, "invalid publish secret")
	case errors.Is(err, publish.ErrMissingTitle), errors.Is(err, publish.ErrMissingPostURL):
		httputil.BadRequest(w, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, publishResponse{
			Success: true,
			Message: fmt.Sprintf("delivered to %d of %d subscribers", res.SentCount, res.TotalRecipients),
			Result:  res,
		})
	}
}

// publishResponse flattens the delivery result under a success envelope.
type publishResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*publish.Result
}

func (h *Handlers) decodePublish(w http.ResponseWriter, r *http.Request) (*publish.Request, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return h.decodePublishMultipart(w, r)
	}

	var body PublishRequest
	if !httputil.Decode(w, r, &body) {
		return nil, false
	}
	if err := body.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, false
	}
	return &publish.Request{
		Title:    body.Title,
		Excerpt:  body.Excerpt,
		Content:  body.Content,
		PostURL:  body.PostURL,
		SendFull: body.SendFull,
		Secret:   body.Secret,
	}, true
}

func (h *Handlers) decodePublishMultipart(w http.ResponseWriter, r *http.Request) (*publish.Request, bool) {
	if err := r.ParseMultipartForm(uploads.MaxBytes); err != nil {
		httputil.BadRequest(w, "malformed multipart form")
		return nil, false
	}

	req := &publish.Request{
		Title:    r.FormValue("title"),
		Excerpt:  r.FormValue("excerpt"),
		Content:  r.FormValue("content"),
		PostURL:  r.FormValue("post_url"),
		SendFull: parseBool(r.FormValue("send_full")),
		Secret:   r.FormValue("secret"),
	}

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return req, true
	}
	if err != nil {
		httputil.BadRequest(w, "unreadable attachment")
		return nil, false
	}
	defer file.Close()

	if h.uploads == nil {
		httputil.BadRequest(w, "attachments are not enabled")
		return nil, false
	}
	url, name, err := h.uploads.Save(r.Context(), file, header.Filename)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		httputil.BadRequest(w, "attachment exceeds the size limit")
		return nil, false
	case errors.Is(err, uploads.ErrBadFilename):
		httputil.BadRequest(w, "attachment filename is not allowed")
		return nil, false
	case err != nil:
		httputil.InternalError(w, err)
		return nil, false
	}
	req.AttachmentURL = url
	req.AttachmentName = name
	return req, true
}

func parseBool(v string) bool {
	switch v {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// HandlePosts lists published posts, newest first.
func (h *Handlers) HandlePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	httputil.OK(w, map[string]any{
		"posts": posts,
		"count": len(posts),
	})
}

// HandleHealth is the load balancer probe.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// HandleUnsubscribeLink serves the one-click unsubscribe link embedded
// in every notification email. It responds with a small HTML page
// rather than JSON because the visitor is a person, not a client.
func (h *Handlers) HandleUnsubscribeLink(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "missing email", http.StatusBadRequest)
		return
	}

	removed, err := h.subs.Unsubscribe(r.Context(), email)
	if err != nil {
		logger.Error("unsubscribe link", "error", err.Error())
		http.Error(w, "something went wrong, please try again later", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if removed {
		fmt.Fprintf(w, "<html><body><p>%s has been unsubscribed. Sorry to see you go.</p></body></html>", html.EscapeString(email))
		return
	}
	fmt.Fprintf(w, "<html><body><p>%s was not subscribed.</p></body></html>", html.EscapeString(email))
}
