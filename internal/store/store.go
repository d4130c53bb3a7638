// Package store provides the persistent credential store backing user
// registration and authentication.  The production implementation keeps a
// local SQLite database; an in-memory implementation backs tests and
// ephemeral runs.
package store

import (
	"errors"
	"sync"
)

// ErrNameTaken is returned by AddNewUser when the user name already exists.
var ErrNameTaken = errors.New("store: user name already taken")

// UserCredentials is a persistent (name, password hash) record.  The hash is
// a bcrypt string that encodes its own salt and cost; the plaintext password
// never reaches this package.
type UserCredentials struct {
	Name         string
	PasswordHash string
}

// CredentialStore is the abstract credential backing consumed by the user
// service.
//
// GetUserByName returns (nil, nil) when no record exists.  AddNewUser must
// enforce name uniqueness atomically and report a conflict as ErrNameTaken.
type CredentialStore interface {
	GetUserByName(name string) (*UserCredentials, error)
	AddNewUser(creds UserCredentials) error
}

// MemoryStore is a CredentialStore held entirely in memory.  An RWMutex
// guards the map so concurrent reader goroutines never block each other.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]UserCredentials // keyed by name
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]UserCredentials)}
}

func (s *MemoryStore) GetUserByName(name string) (*UserCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.users[name]
	if !ok {
		return nil, nil
	}
	return &creds, nil
}

func (s *MemoryStore) AddNewUser(creds UserCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[creds.Name]; exists {
		return ErrNameTaken
	}
	s.users[creds.Name] = creds
	return nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
