package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	t.Run("first user message", func(t *testing.T) {
		messages := []Message{
			NewAssistantMessage("welcome", nil),
			NewUserMessage("tell me about lighthouses", nil),
			NewUserMessage("second question", nil),
		}
		assert.Equal(t, "tell me about lighthouses", DeriveTitle(messages))
	})

	t.Run("truncates to fifty characters", func(t *testing.T) {
		long := strings.Repeat("a", 120)
		title := DeriveTitle([]Message{NewUserMessage(long, nil)})
		assert.Len(t, title, 50)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		long := strings.Repeat("é", 60)
		title := DeriveTitle([]Message{NewUserMessage(long, nil)})
		assert.Equal(t, 50, len([]rune(title)))
	})

	t.Run("fallback without user turns", func(t *testing.T) {
		messages := []Message{NewAssistantMessage("welcome", nil)}
		assert.Equal(t, DefaultTitle, DeriveTitle(messages))
	})
}

func TestMessageConstructors(t *testing.T) {
	user := NewUserMessage("hi", []Attachment{{Name: "a.txt"}})
	assert.Equal(t, KindUser, user.Kind)
	assert.Equal(t, "user", user.Role())
	assert.False(t, user.Failed())

	assistant := NewAssistantMessage("hello", &ResponseMeta{ModelUsed: "haiku"})
	assert.Equal(t, KindAssistant, assistant.Kind)
	assert.Equal(t, "assistant", assistant.Role())

	failed := NewFailedAssistantMessage("boom", "hi")
	assert.Equal(t, KindAssistantFailed, failed.Kind)
	assert.Equal(t, "assistant", failed.Role())
	assert.True(t, failed.Failed())
	assert.Equal(t, "hi", failed.OriginalUserMessage)
}

func TestMessageMetaNotSerialized(t *testing.T) {
	msg := NewAssistantMessage("hello", &ResponseMeta{ModelUsed: "haiku", FromCache: true})

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "haiku")

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.Meta)
	assert.Equal(t, "hello", decoded.Content)
}
