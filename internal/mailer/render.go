package mailer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/newsletter/internal/domain"
)

const notificationTmpl = `<h1>{{ title }}</h1>
{{ body }}
<p><a href="{{ post_url }}">Read this post on the site</a></p>
{% if attachment_url != "" %}<p>Attachment: <a href="{{ attachment_url }}">{{ attachment_name }}</a></p>{% endif %}
<hr>
<p style="font-size:12px;color:#888">You receive this because you subscribed to {{ newsletter_name }}.
<a href="{{ unsubscribe_url }}">Unsubscribe</a></p>`

const welcomeTmpl = `<h1>Welcome{% if name != "" %}, {{ name }}{% endif %}!</h1>
<p>You are now subscribed to {{ newsletter_name }}. New posts land in this inbox.</p>
<p style="font-size:12px;color:#888">Changed your mind? <a href="{{ unsubscribe_url }}">Unsubscribe</a> any time.</p>`

const subscriberAlertTmpl = `<p><strong>{{ email }}</strong> just subscribed to {{ newsletter_name }}.</p>
<p>Total subscribers: {{ total }}</p>`

const summaryTmpl = `<h1>Delivery report: {{ title }}</h1>
<ul>
<li>Sent: {{ sent }}</li>
<li>Failed: {{ failed }}</li>
<li>Total recipients: {{ total }}</li>
<li>Published: {{ published_at }}</li>
</ul>
{% if attachment_url != "" %}<p>Attachment: <a href="{{ attachment_url }}">{{ attachment_name }}</a></p>{% endif %}
<p>Post: <a href="{{ post_url }}">{{ post_url }}</a></p>
{% if failed_list != "" %}<p>Failed recipients:</p><pre>{{ failed_list }}</pre>{% endif %}`

// Renderer builds every outbound email body from Liquid templates. Templates
// are parsed once at construction; a parse failure is a programming error
// and panics at startup.
type Renderer struct {
	notification    *liquid.Template
	welcome         *liquid.Template
	subscriberAlert *liquid.Template
	summary         *liquid.Template
	baseURL         string
	newsletterName  string
}

// NewRenderer creates a renderer. baseURL is the public address of this
// service, used for unsubscribe links.
func NewRenderer(baseURL, newsletterName string) *Renderer {
	engine := liquid.NewEngine()
	return &Renderer{
		notification:    mustParse(engine, notificationTmpl),
		welcome:         mustParse(engine, welcomeTmpl),
		subscriberAlert: mustParse(engine, subscriberAlertTmpl),
		summary:         mustParse(engine, summaryTmpl),
		baseURL:         strings.TrimRight(baseURL, "/"),
		newsletterName:  newsletterName,
	}
}

func mustParse(engine *liquid.Engine, src string) *liquid.Template {
	tpl, err := engine.ParseString(src)
	if err != nil {
		panic(fmt.Sprintf("mailer: bad template: %v", err))
	}
	return tpl
}

// UnsubscribeURL returns the per-recipient unsubscribe link embedded in
// every subscriber-facing email.
func (r *Renderer) UnsubscribeURL(email string) string {
	return r.baseURL + "/unsubscribe?email=" + url.QueryEscape(email)
}

// Notification renders the post announcement for one subscriber. The body
// is the full content when the post was published with sendFull, otherwise
// just the excerpt.
func (r *Renderer) Notification(p *domain.Post, sub *domain.Subscriber) (*Message, error) {
	body := "<p>" + p.Excerpt + "</p>"
	if p.SendFull {
		body = p.Content
	}

	html, err := r.notification.RenderString(map[string]any{
		"title":           p.Title,
		"body":            body,
		"post_url":        p.PostURL,
		"attachment_url":  p.AttachmentURL,
		"attachment_name": p.AttachmentName,
		"newsletter_name": r.newsletterName,
		"unsubscribe_url": r.UnsubscribeURL(sub.Email),
	})
	if err != nil {
		return nil, fmt.Errorf("render notification: %w", err)
	}

	return &Message{To: sub.Email, Subject: p.Title, HTML: html}, nil
}

// Welcome renders the greeting sent to a freshly created subscriber.
func (r *Renderer) Welcome(sub *domain.Subscriber) (*Message, error) {
	html, err := r.welcome.RenderString(map[string]any{
		"name":            sub.Name,
		"newsletter_name": r.newsletterName,
		"unsubscribe_url": r.UnsubscribeURL(sub.Email),
	})
	if err != nil {
		return nil, fmt.Errorf("render welcome: %w", err)
	}

	return &Message{
		To:      sub.Email,
		Subject: "Welcome to " + r.newsletterName,
		HTML:    html,
	}, nil
}

// SubscriberAlert renders the admin notice for a new subscription,
// including the updated total count.
func (r *Renderer) SubscriberAlert(to string, sub *domain.Subscriber, total int) (*Message, error) {
	html, err := r.subscriberAlert.RenderString(map[string]any{
		"email":           sub.Email,
		"newsletter_name": r.newsletterName,
		"total":           total,
	})
	if err != nil {
		return nil, fmt.Errorf("render subscriber alert: %w", err)
	}

	return &Message{
		To:      to,
		Subject: fmt.Sprintf("New subscriber (%d total)", total),
		HTML:    html,
	}, nil
}

// Summary renders the post-delivery report sent to the administrator after
// every fan-out.
func (r *Renderer) Summary(to string, p *domain.Post, res domain.DeliveryResult) (*Message, error) {
	html, err := r.summary.RenderString(map[string]any{
		"title":           p.Title,
		"sent":            res.SentCount,
		"failed":          res.FailedCount(),
		"total":           res.TotalRecipients,
		"published_at":    p.PublishedAt.Format(time.RFC1123),
		"post_url":        p.PostURL,
		"attachment_url":  p.AttachmentURL,
		"attachment_name": p.AttachmentName,
		"failed_list":     strings.Join(res.FailedRecipients, "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}

	return &Message{
		To:      to,
		Subject: fmt.Sprintf("Delivered: %s (%d/%d sent)", p.Title, res.SentCount, res.TotalRecipients),
		HTML:    html,
	}, nil
}
