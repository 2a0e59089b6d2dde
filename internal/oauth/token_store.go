package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"taskctl/pkg/logging"
)

// TokenFileName is the name of the persisted token file in the state directory.
const TokenFileName = "token.json"

// TokenRecord is the credential obtained by a successful login.
type TokenRecord struct {
	AccessToken string    `json:"access_token"`
	IDToken     string    `json:"id_token,omitempty"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	Domain      string    `json:"domain"`
	StoredAt    time.Time `json:"stored_at"`
}

// ExpiresAt returns the instant the token stops being valid.
func (t *TokenRecord) ExpiresAt() time.Time {
	return t.StoredAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// ValidAt reports whether the token is valid at now.
func (t *TokenRecord) ValidAt(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt())
}

// TokenStore keeps a single token record on disk and in memory.
//
// SECURITY: the file is written 0600 inside a 0700 directory and token
// values are never logged.
type TokenStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time

	current *TokenRecord
}

// NewTokenStore returns a store persisting to stateDir/token.json. A nil
// clock means time.Now.
func NewTokenStore(stateDir string, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{
		path: filepath.Join(stateDir, TokenFileName),
		now:  now,
	}
}

// Path returns the token file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Save replaces the stored token. The in-memory copy is updated even when
// writing the file fails.
func (s *TokenStore) Save(domain string, token *TokenRecord) error {
	if token == nil {
		return errors.New("token must not be nil")
	}

	record := *token
	record.Domain = domain

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &record

	if err := s.writeFile(&record); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "token_store",
			Outcome: "failure",
			Domain:  domain,
			Detail:  err.Error(),
		})
		return fmt.Errorf("failed to persist token: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_store",
		Outcome: "success",
		Domain:  domain,
		Detail:  "expires_at=" + record.ExpiresAt().Format(time.RFC3339),
	})
	return nil
}

// Load returns the stored token if it is still valid. An expired token is
// cleared. Unreadable or malformed files yield nil.
func (s *TokenStore) Load() *TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.current
	if record == nil {
		var err error
		record, err = s.readFile()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.WarnErr("TokenStore", err, "Ignoring unreadable token file %s", s.path)
			}
			return nil
		}
	}

	if !record.ValidAt(s.now()) {
		logging.Debug("TokenStore", "Stored token for %s has expired", record.Domain)
		_ = s.clearLocked()
		return nil
	}

	s.current = record
	copied := *record
	return &copied
}

// Clear removes the stored token from memory and disk.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *TokenStore) clearLocked() error {
	domain := ""
	if s.current != nil {
		domain = s.current.Domain
	}
	s.current = nil

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Audit(logging.AuditEvent{
			Action:  "token_clear",
			Outcome: "failure",
			Domain:  domain,
			Detail:  err.Error(),
		})
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_clear",
		Outcome: "success",
		Domain:  domain,
	})
	return nil
}

func (s *TokenStore) writeFile(record *TokenRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	// Write to a temp file then rename so a crash never leaves a partial token
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (s *TokenStore) readFile() (*TokenRecord, error) {
	// #nosec G304 -- path is derived from the configured state directory
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &record, nil
}
