package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/models"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]models.User
	err   error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]models.User{}}
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.ErrDuplicateIdentity
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) setAdmin(id string, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.IsAdmin = admin
	s.users[id] = u
}

// tamper changes the first signature character; trailing characters can
// carry padding bits that decoders ignore.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	repl := byte('A')
	if token[i] == 'A' {
		repl = 'B'
	}
	return token[:i] + string(repl) + token[i+1:]
}
