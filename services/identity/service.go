package identity

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"convene/models"
)

var (
	ErrTokenNotFound      = errors.New("token not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrStorageDirRequired = errors.New("storage directory not provided")
)

// TokenLength is the number of random bytes used for bearer tokens.
const TokenLength = 32

type record struct {
	Token    string      `json:"token"`
	User     models.User `json:"user"`
	IssuedAt time.Time   `json:"issuedAt"`
}

// Service is the identity adapter the core consumes. It resolves opaque
// bearer tokens to user records from a local file-backed store. Real
// authentication lives outside the core; anything that can satisfy Resolve
// can replace this.
type Service struct {
	mu     sync.RWMutex
	path   string
	tokens map[string]record
}

// NewService creates an identity service storing tokens inside the provided
// directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}

	svc := &Service{
		path:   filepath.Join(storageDir, "tokens.json"),
		tokens: make(map[string]record),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// Issue creates a bearer token for the given user.
func (s *Service) Issue(user models.User) (string, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", fmt.Errorf("user id required")
	}

	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = record{
		Token:    token,
		User:     user,
		IssuedAt: time.Now().UTC(),
	}

	if err := s.saveLocked(); err != nil {
		delete(s.tokens, token)
		return "", err
	}

	return token, nil
}

// Resolve returns the user a bearer token belongs to.
func (s *Service) Resolve(token string) (models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, ErrInvalidToken
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[token]
	if !ok {
		return models.User{}, ErrTokenNotFound
	}
	return rec.User, nil
}

// Revoke removes a token.
func (s *Service) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return ErrTokenNotFound
	}
	delete(s.tokens, token)
	return s.saveLocked()
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open tokens file: %w", err)
	}
	defer file.Close()

	var stored []record
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode tokens: %w", err)
	}

	s.tokens = make(map[string]record, len(stored))
	for _, rec := range stored {
		if strings.TrimSpace(rec.Token) == "" {
			continue
		}
		s.tokens[rec.Token] = rec
	}

	return nil
}

func (s *Service) saveLocked() error {
	records := make([]record, 0, len(s.tokens))
	for _, rec := range s.tokens {
		records = append(records, rec)
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create tokens temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode tokens: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync tokens: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tokens temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace tokens file: %w", err)
	}

	return nil
}
