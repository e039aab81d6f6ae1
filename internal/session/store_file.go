package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists slots as a JSON object on disk. Other keys already in
// the file are preserved on write.
type FileStore struct {
	path string

	mu    sync.RWMutex
	slots map[string]json.RawMessage
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session file path is required")
	}
	return &FileStore{path: path, slots: make(map[string]json.RawMessage)}, nil
}

// Init loads the file. A missing or empty file is an empty store; a corrupt
// file is logged and treated as empty so a bad write never locks the operator out.
func (s *FileStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	decoded := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &decoded); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("session file unreadable, starting logged out")
		return nil
	}
	s.slots = decoded
	return nil
}

func (s *FileStore) Read() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.slots[SlotKey]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Warn().Err(err).Msg("session slot unreadable")
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Write(sess Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[SlotKey] = b
	return s.persistLocked()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, SlotKey)
	return s.persistLocked()
}

func (s *FileStore) persistLocked() error {
	b, err := json.MarshalIndent(s.slots, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir session dir: %w", err)
	}
	// Write-then-rename so a crash mid-write leaves the previous session intact.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
