// Package sqlite implements the durable conversation and settings store on
// an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/rmarinho/toonchat/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	keyActiveConversation = "active_conversation"
	keySettings           = "settings"
	keyTheme              = "theme"
)

// Store is the single reader/writer of the durable conversation map. It
// implements domain.ConversationRepository and domain.SettingsRepository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all conversations ordered by most recently updated. It is
// fail-open: a row that cannot be decoded is logged and skipped so a
// corrupted record never blocks the UI.
func (s *Store) List(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, messages, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []domain.Conversation{}
	for rows.Next() {
		var id, title, messages, createdAt, updatedAt string
		if err := rows.Scan(&id, &title, &messages, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		conv, err := decodeConversation(id, title, messages, createdAt, updatedAt)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", id).Msg("skipping undecodable conversation")
			continue
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

// Get returns one conversation, or nil when it does not exist or cannot be
// decoded.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var rowID, title, messages, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, messages, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id.String()).Scan(&rowID, &title, &messages, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv, err := decodeConversation(rowID, title, messages, createdAt, updatedAt)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", rowID).Msg("undecodable conversation")
		return nil, nil
	}
	return conv, nil
}

// Save upserts a conversation by id, last writer wins. Assistant response
// metadata is display-only and not serialized.
func (s *Store) Save(ctx context.Context, conversation *domain.Conversation) error {
	messages, err := json.Marshal(conversation.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`,
		conversation.ID.String(),
		conversation.Title,
		string(messages),
		conversation.CreatedAt.Format(time.RFC3339Nano),
		conversation.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// ActiveID returns the active conversation id, or uuid.Nil when none is set.
func (s *Store) ActiveID(ctx context.Context) (uuid.UUID, error) {
	value, err := s.getKV(ctx, keyActiveConversation)
	if err != nil || value == "" {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(value)
	if err != nil {
		log.Warn().Err(err).Msg("invalid active conversation id, ignoring")
		return uuid.Nil, nil
	}
	return id, nil
}

// SetActiveID records the active conversation id.
func (s *Store) SetActiveID(ctx context.Context, id uuid.UUID) error {
	return s.setKV(ctx, keyActiveConversation, id.String())
}

// Settings returns the stored application settings, falling back to defaults
// when none are stored or the stored value cannot be decoded.
func (s *Store) Settings(ctx context.Context) (*domain.Settings, error) {
	defaults := &domain.Settings{MaxResults: 5, AutoScroll: true}

	value, err := s.getKV(ctx, keySettings)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return defaults, nil
	}

	var settings domain.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		log.Warn().Err(err).Msg("invalid stored settings, using defaults")
		return defaults, nil
	}
	return &settings, nil
}

// SaveSettings stores the application settings.
func (s *Store) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.setKV(ctx, keySettings, string(value))
}

// Theme returns the stored theme preference, defaulting to light.
func (s *Store) Theme(ctx context.Context) (string, error) {
	value, err := s.getKV(ctx, keyTheme)
	if err != nil {
		return "", err
	}
	if value != domain.ThemeDark {
		return domain.ThemeLight, nil
	}
	return domain.ThemeDark, nil
}

// SaveTheme stores the theme preference.
func (s *Store) SaveTheme(ctx context.Context, theme string) error {
	return s.setKV(ctx, keyTheme, theme)
}

func (s *Store) getKV(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setKV(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func decodeConversation(id, title, messages, createdAt, updatedAt string) (*domain.Conversation, error) {
	convID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation id: %w", err)
	}

	var msgs []domain.Message
	if err := json.Unmarshal([]byte(messages), &msgs); err != nil {
		return nil, fmt.Errorf("invalid message payload: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &domain.Conversation{
		ID:        convID,
		Title:     title,
		Messages:  msgs,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
