package request

// CreateWebhook is the body for registering a webhook subscription.
type CreateWebhook struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1"`
}

// UpdateWebhook carries partial updates; nil fields are left unchanged.
type UpdateWebhook struct {
	URL     *string  `json:"url,omitempty" validate:"omitempty,url"`
	Events  []string `json:"events,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}
