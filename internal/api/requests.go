package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SubscribeRequest is the POST /api/subscribe body.
type SubscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (r SubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Name, validation.Length(0, 200)),
	)
}

// UnsubscribeRequest is the POST /api/unsubscribe body.
type UnsubscribeRequest struct {
	Email string `json:"email"`
}

func (r UnsubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
	)
}

// PublishRequest is the JSON form of POST /api/publish. The endpoint
// also accepts multipart form data with the same field names.
type PublishRequest struct {
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	PostURL  string `json:"post_url"`
	SendFull bool   `json:"send_full"`
	Secret   string `json:"secret"`
}

func (r PublishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.PostURL, validation.Required),
	)
}
