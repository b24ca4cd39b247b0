// Package session owns the in-memory state of one active conversation and
// mediates every state change: optimistic appends, persistence gating, error
// classification, notifications and the typing reveal.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rmarinho/toonchat/internal/domain"
	"github.com/rmarinho/toonchat/internal/gateway"
	"github.com/rmarinho/toonchat/internal/notify"
	"github.com/rmarinho/toonchat/internal/reveal"
)

// Greeting seeds a brand-new conversation. A greeting-only conversation is
// never persisted.
const Greeting = "Hi! I'm your assistant. Ask me anything and I'll search the collection for you."

// FallbackErrorMessage is shown when a failure carries no usable message.
const FallbackErrorMessage = "Something went wrong. Please try again."

// ErrSendInFlight is returned when SendMessage is called while a previous
// send has not finished. Concurrent sends on one session are rejected, not
// queued.
var ErrSendInFlight = errors.New("a send is already in flight")

// Gateway is the slice of the request gateway the session manager needs.
type Gateway interface {
	Send(ctx context.Context, content string, conversationID uuid.UUID, maxResults int) (*gateway.ChatResponse, error)
}

// Typing configures the reveal applied to newly-arrived assistant messages.
type Typing struct {
	Enabled      bool
	CharsPerTick int
	TickInterval time.Duration
}

// State is a consistent snapshot of the session.
type State struct {
	ConversationID uuid.UUID
	Messages       []domain.Message
	IsLoading      bool
	Err            string
	HasUserMessage bool
}

// Manager drives the conversation session lifecycle. All mutations are
// serialized; the network call happens outside the lock after the user
// message is committed, so snapshots taken mid-send are consistent.
type Manager struct {
	repo       domain.ConversationRepository
	gw         Gateway
	bus        *notify.Bus
	maxResults int
	typing     Typing

	mu             sync.Mutex
	conversationID uuid.UUID
	title          string
	createdAt      time.Time
	messages       []domain.Message
	isLoading      bool
	lastError      string
	hasUserMessage bool
	activeReveal   *reveal.Reveal
}

// NewManager creates a session manager. Open or Clear must be called before
// the first SendMessage.
func NewManager(repo domain.ConversationRepository, gw Gateway, bus *notify.Bus, maxResults int, typing Typing) *Manager {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Manager{
		repo:       repo,
		gw:         gw,
		bus:        bus,
		maxResults: maxResults,
		typing:     typing,
	}
}

// Open selects a conversation id. An id found in the store loads its history;
// an unknown id (or uuid.Nil, which mints a fresh one) seeds the session with
// a single greeting that stays out of storage until a user message arrives.
// A load failure is fail-open (logged, treated as a new conversation); a
// failure to record the active id is returned, since resume depends on it.
func (m *Manager) Open(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		id = uuid.New()
	}

	var loaded *domain.Conversation
	conv, err := m.repo.Get(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id.String()).Msg("failed to load conversation")
	} else {
		loaded = conv
	}

	m.mu.Lock()
	m.cancelRevealLocked()
	m.conversationID = id
	m.isLoading = false
	m.lastError = ""
	if loaded != nil {
		// An existing conversation contains a user turn by construction.
		m.title = loaded.Title
		m.createdAt = loaded.CreatedAt
		m.messages = append([]domain.Message(nil), loaded.Messages...)
		m.hasUserMessage = true
	} else {
		m.title = ""
		m.createdAt = time.Now()
		m.messages = []domain.Message{domain.NewAssistantMessage(Greeting, nil)}
		m.hasUserMessage = false
	}
	m.mu.Unlock()

	if err := m.repo.SetActiveID(ctx, id); err != nil {
		return fmt.Errorf("failed to record active conversation: %w", err)
	}
	return nil
}

// SendMessage appends the user turn optimistically, invokes the gateway and
// appends exactly one assistant turn: the answer on success, a retryable
// failure placeholder otherwise. Gateway errors never escape this call; the
// only error returned is ErrSendInFlight.
func (m *Manager) SendMessage(ctx context.Context, content string, attachments []domain.Attachment) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	m.mu.Lock()
	if m.isLoading {
		m.mu.Unlock()
		return ErrSendInFlight
	}
	m.isLoading = true
	m.lastError = ""
	m.cancelRevealLocked()
	m.messages = append(m.messages, domain.NewUserMessage(content, attachments))
	m.hasUserMessage = true
	conversationID := m.conversationID
	m.persistLocked(ctx)
	m.mu.Unlock()

	resp, err := m.gw.Send(ctx, content, conversationID, m.maxResults)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conversationID != conversationID {
		// The session moved on while the request was in flight; the late
		// response is discarded.
		m.isLoading = false
		return nil
	}

	if err != nil {
		detail := normalizeError(err)
		log.Error().Err(err).Str("conversation_id", conversationID.String()).Msg("send failed")
		m.lastError = detail
		m.messages = append(m.messages, domain.NewFailedAssistantMessage(detail, content))
		m.bus.Publish(detail, notify.TypeError, 6*time.Second)
	} else {
		meta := &domain.ResponseMeta{
			ModelUsed:           resp.ModelUsed,
			FromCache:           resp.FromCache,
			CollectionsSearched: resp.CollectionsSearched,
		}
		if resp.TokenOptimization != nil {
			meta.TokensSaved = resp.TokenOptimization.TokensSaved
			meta.CompressionRatio = resp.TokenOptimization.CompressionRatio
		}
		msg := domain.NewAssistantMessage(resp.Response, meta)
		m.messages = append(m.messages, msg)
		m.startRevealLocked(msg.Content)
		m.bus.Publish("Response received", notify.TypeSuccess, 3*time.Second)
	}

	m.persistLocked(ctx)
	m.isLoading = false
	return nil
}

// Retry re-sends the user content recorded on a failed assistant message. It
// appends a new turn pair; the original failed turn stays in place.
func (m *Manager) Retry(ctx context.Context, messageID uuid.UUID) error {
	m.mu.Lock()
	var original string
	for _, msg := range m.messages {
		if msg.ID == messageID && msg.Failed() {
			original = msg.OriginalUserMessage
			break
		}
	}
	m.mu.Unlock()

	if original == "" {
		return nil
	}
	return m.SendMessage(ctx, original, nil)
}

// Clear discards the in-memory session and mints a fresh conversation id.
// The previous conversation's stored record is left intact.
func (m *Manager) Clear(ctx context.Context) error {
	return m.Open(ctx, uuid.New())
}

// Snapshot returns a consistent copy of the session state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		ConversationID: m.conversationID,
		Messages:       append([]domain.Message(nil), m.messages...),
		IsLoading:      m.isLoading,
		Err:            m.lastError,
		HasUserMessage: m.hasUserMessage,
	}
}

// CurrentReveal returns the reveal for the most recent assistant message, or
// nil when nothing is revealing. Loaded history and failure placeholders are
// never revealed.
func (m *Manager) CurrentReveal() *reveal.Reveal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeReveal
}

// Teardown cancels pending reveal ticks. An in-flight network request is not
// cancelled; its late response is discarded by the conversation id check in
// SendMessage.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelRevealLocked()
}

// persistLocked writes the conversation whenever it is eligible: at least one
// message and at least one user turn. Greeting-only sessions never hit the
// store. Persist failures are logged and do not interrupt the session.
func (m *Manager) persistLocked(ctx context.Context) {
	if len(m.messages) == 0 || !m.hasUserMessage {
		return
	}

	if m.title == "" || m.title == domain.DefaultTitle {
		m.title = domain.DeriveTitle(m.messages)
	}

	conv := &domain.Conversation{
		ID:        m.conversationID,
		Title:     m.title,
		Messages:  append([]domain.Message(nil), m.messages...),
		CreatedAt: m.createdAt,
		UpdatedAt: time.Now(),
	}
	if err := m.repo.Save(ctx, conv); err != nil {
		log.Error().Err(err).Str("conversation_id", m.conversationID.String()).Msg("failed to persist conversation")
	}
}

func (m *Manager) startRevealLocked(text string) {
	m.cancelRevealLocked()
	if !m.typing.Enabled {
		return
	}
	m.activeReveal = reveal.Start(text, m.typing.CharsPerTick, m.typing.TickInterval)
}

func (m *Manager) cancelRevealLocked() {
	if m.activeReveal != nil {
		m.activeReveal.Cancel()
		m.activeReveal = nil
	}
}

// normalizeError turns any gateway failure into one user-visible string:
// server-supplied detail first, then the error text, then a fixed fallback.
func normalizeError(err error) string {
	var svcErr *gateway.ServiceError
	if errors.As(err, &svcErr) && svcErr.Detail != "" {
		return svcErr.Detail
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return FallbackErrorMessage
}
