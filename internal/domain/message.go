package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind tags the variant of a conversation turn
type MessageKind string

const (
	KindUser            MessageKind = "user"
	KindAssistant       MessageKind = "assistant"
	KindAssistantFailed MessageKind = "assistant_failed"
)

// Attachment references a file attached to a user message.
// Only the reference is stored, never the file contents.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ResponseMeta carries answering-service metadata for an assistant message.
// It is display-only and stripped before a conversation is saved.
type ResponseMeta struct {
	ModelUsed           string   `json:"model_used,omitempty"`
	FromCache           bool     `json:"from_cache,omitempty"`
	TokensSaved         int      `json:"tokens_saved,omitempty"`
	CompressionRatio    float64  `json:"compression_ratio,omitempty"`
	CollectionsSearched []string `json:"collections_searched,omitempty"`
}

// Message represents one turn in a conversation. Which optional fields are
// set is determined by Kind: Attachments belong to user messages, Meta to
// assistant messages, OriginalUserMessage to failed assistant messages.
// Use the constructors below instead of building a Message by hand.
type Message struct {
	ID                  uuid.UUID     `json:"id"`
	Kind                MessageKind   `json:"kind"`
	Content             string        `json:"content"`
	CreatedAt           time.Time     `json:"created_at"`
	Attachments         []Attachment  `json:"attachments,omitempty"`
	OriginalUserMessage string        `json:"original_user_message,omitempty"`
	Meta                *ResponseMeta `json:"-"`
}

// NewUserMessage creates a user turn.
func NewUserMessage(content string, attachments []Attachment) Message {
	return Message{
		ID:          uuid.New(),
		Kind:        KindUser,
		Content:     content,
		CreatedAt:   time.Now(),
		Attachments: attachments,
	}
}

// NewAssistantMessage creates a successful assistant turn.
func NewAssistantMessage(content string, meta *ResponseMeta) Message {
	return Message{
		ID:        uuid.New(),
		Kind:      KindAssistant,
		Content:   content,
		CreatedAt: time.Now(),
		Meta:      meta,
	}
}

// NewFailedAssistantMessage creates a failure placeholder carrying the user
// content that produced it, so the turn can be retried later.
func NewFailedAssistantMessage(content, originalUserMessage string) Message {
	return Message{
		ID:                  uuid.New(),
		Kind:                KindAssistantFailed,
		Content:             content,
		CreatedAt:           time.Now(),
		OriginalUserMessage: originalUserMessage,
	}
}

// Role returns the wire-level role for the message kind.
func (m Message) Role() string {
	if m.Kind == KindUser {
		return "user"
	}
	return "assistant"
}

// Failed reports whether this is a failure placeholder.
func (m Message) Failed() bool {
	return m.Kind == KindAssistantFailed
}
