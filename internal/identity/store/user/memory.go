package user

import (
	"context"
	"strings"
	"sync"

	"signup/internal/identity/models"
	"signup/internal/identity/store"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

// InMemory keeps the user store lightweight and testable. Uniqueness is
// enforced under one lock, giving the same atomic create-if-available
// semantics the Postgres store gets from its unique indexes.
type InMemory struct {
	mu         sync.RWMutex
	seq        int64
	byID       map[int64]models.User
	byUsername map[string]int64
	byEmail    map[string]int64
	byToken    map[string]int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:       make(map[int64]models.User),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		byToken:    make(map[string]int64),
	}
}

// CreateIfAvailable inserts the user unless username or email is taken,
// assigning the numeric ID. Username is checked before email so concurrent
// duplicates on both fields report the username first, matching the
// pre-check order.
func (s *InMemory) CreateIfAvailable(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usernameKey := strings.ToLower(user.Username)
	emailKey := strings.ToLower(user.Email)
	if _, taken := s.byUsername[usernameKey]; taken {
		return models.User{}, &store.Conflict{Field: "username", Value: user.Username}
	}
	if _, taken := s.byEmail[emailKey]; taken {
		return models.User{}, &store.Conflict{Field: "email", Value: user.Email}
	}

	s.seq++
	user.ID = s.seq
	stored := user.Clone()
	s.byID[stored.ID] = stored
	s.byUsername[usernameKey] = stored.ID
	s.byEmail[emailKey] = stored.ID
	if stored.VerificationToken != nil {
		s.byToken[*stored.VerificationToken] = stored.ID
	}
	return stored.Clone(), nil
}

// Update replaces the stored record, reindexing the verification token.
func (s *InMemory) Update(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[user.ID]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	if prev.VerificationToken != nil {
		delete(s.byToken, *prev.VerificationToken)
	}

	stored := user.Clone()
	s.byID[stored.ID] = stored
	if stored.VerificationToken != nil {
		s.byToken[*stored.VerificationToken] = stored.ID
	}
	return stored.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, userID int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.byID[userID]; ok {
		return user.Clone(), nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByPublicID(_ context.Context, publicID id.UserID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.byID {
		if user.PublicID == publicID {
			return user.Clone(), nil
		}
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byUsername[strings.ToLower(username)]; ok {
		return s.byID[userID].Clone(), nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[strings.ToLower(email)]; ok {
		return s.byID[userID].Clone(), nil
	}
	return models.User{}, sentinel.ErrNotFound
}

// FindByVerificationToken matches on the exact current token value. Replaced
// tokens are unindexed on update and therefore unfindable.
func (s *InMemory) FindByVerificationToken(_ context.Context, token string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byToken[token]; ok {
		return s.byID[userID].Clone(), nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemory) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}
