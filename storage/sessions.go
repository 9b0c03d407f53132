// Package storage persists conversation histories as JSON files under the
// data directory, one file per session.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tandem/model"

	"github.com/google/uuid"
)

// Session is the persisted form of one conversation.
type Session struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Model        string        `json:"model"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	History      model.History `json:"history"`
	SystemPrompt string        `json:"system_prompt,omitempty"`

	// CompactedHashes carries the summarized-away set across restarts so a
	// reloaded session never re-summarizes the same messages.
	CompactedHashes []string `json:"compacted_hashes,omitempty"`
}

// SessionMetadata is what List returns: enough to render a picker without
// loading full histories.
type SessionMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
}

// SessionStorage reads and writes session files under <dataDir>/sessions.
type SessionStorage struct {
	sessionsDir string
}

func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return &SessionStorage{sessionsDir: dir}, nil
}

func (s *SessionStorage) sessionPath(id string) string {
	return filepath.Join(s.sessionsDir, id+".json")
}

// Save writes a session to disk, assigning an ID on first save and bumping
// UpdatedAt. Files are 0600: histories are conversation content.
func (s *SessionStorage) Save(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", session.ID, err)
	}
	if err := os.WriteFile(s.sessionPath(session.ID), data, 0600); err != nil {
		return fmt.Errorf("writing session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SessionStorage) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &session, nil
}

// List returns metadata for every readable session, newest first. Corrupt
// files are skipped rather than failing the whole listing.
func (s *SessionStorage) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var sessions []SessionMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sess, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		sessions = append(sessions, SessionMetadata{
			ID:           sess.ID,
			Name:         sess.Name,
			Model:        sess.Model,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.History),
			SystemPrompt: sess.SystemPrompt,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *SessionStorage) Delete(id string) error {
	if err := os.Remove(s.sessionPath(id)); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// SaveCurrentSessionID persists which session to resume on next start.
func (s *SessionStorage) SaveCurrentSessionID(id string) error {
	return os.WriteFile(filepath.Join(s.sessionsDir, "current"), []byte(id), 0600)
}

// LoadCurrentSessionID returns the session to resume, empty if none.
func (s *SessionStorage) LoadCurrentSessionID() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionsDir, "current"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GenerateSessionName derives a display name from the first user message:
// one line, at most 50 characters, cut at a word boundary when one falls in
// the back half.
func GenerateSessionName(firstMessage string) string {
	name := strings.ReplaceAll(strings.TrimSpace(firstMessage), "\n", " ")

	const maxLen = 50
	if len(name) > maxLen {
		name = name[:maxLen]
		if idx := strings.LastIndex(name, " "); idx > maxLen/2 {
			name = name[:idx]
		}
		name += "..."
	}
	if name == "" {
		name = "New Session"
	}
	return name
}
