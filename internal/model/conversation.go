package model

import "time"

// Conversation is a persisted chat thread: a sequence of turns sharing a
// server-issued conversation id.
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ProviderID string    `json:"providerId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Turns is populated on load; it is not written back field-by-field,
	// the repository owns turn persistence.
	Turns []*Turn `json:"turns,omitempty"`
}

// Turn is one completed request/response exchange within a conversation.
type Turn struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversationId"`
	Query            string    `json:"query"`
	GeneratedQuery   string    `json:"generatedQuery"`
	ConfidenceScore  float64   `json:"confidenceScore"`
	ValidationStatus string    `json:"validationStatus"`
	Iterations       int       `json:"iterations"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Duration returns how long ago the conversation was started.
func (c *Conversation) Duration() time.Duration {
	return time.Since(c.CreatedAt)
}
