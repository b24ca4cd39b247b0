package domain

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultTitle is used when a conversation has no user message to derive
// a title from.
const DefaultTitle = "New Conversation"

const titleMaxLen = 50

// Conversation is a titled, ordered sequence of turns persisted under one id.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeriveTitle returns the title for a message sequence: the first user
// message truncated to 50 characters, or DefaultTitle when no user turn
// exists yet.
func DeriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Kind != KindUser {
			continue
		}
		if utf8.RuneCountInString(m.Content) <= titleMaxLen {
			return m.Content
		}
		return string([]rune(m.Content)[:titleMaxLen])
	}
	return DefaultTitle
}

// ConversationRepository defines the interface for durable conversation
// storage. Save is an upsert by conversation id, last writer wins.
type ConversationRepository interface {
	List(ctx context.Context) ([]Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	Save(ctx context.Context, conversation *Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
	ActiveID(ctx context.Context) (uuid.UUID, error)
	SetActiveID(ctx context.Context, id uuid.UUID) error
}

// Settings holds user-tunable application settings.
type Settings struct {
	MaxResults   int  `json:"max_results"`
	AutoScroll   bool `json:"auto_scroll"`
	SoundEnabled bool `json:"sound_enabled"`
}

// Theme values for the UI preference key.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// SettingsRepository defines independent key-value accessors for application
// settings and the theme preference.
type SettingsRepository interface {
	Settings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, settings *Settings) error
	Theme(ctx context.Context) (string, error)
	SaveTheme(ctx context.Context, theme string) error
}
