package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Ping always succeeds
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.usernameIndex[user.Username]; ok && owner != user.ID {
		return model.ErrUsernameExists
	}

	if existing, ok := s.users[user.ID]; ok && existing.Username != user.Username {
		delete(s.usernameIndex, existing.Username)
	}

	s.users[user.ID] = user.Clone()
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	delete(s.usernameIndex, user.Username)
	delete(s.users, id)
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	players := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Role == model.RolePlayer {
			players = append(players, u.Clone())
		}
	}
	s.mu.RUnlock()

	// Map order is random; fix tie order before ranking
	sort.Slice(players, func(i, j int) bool {
		return players[i].Username < players[j].Username
	})
	model.SortByClickCount(players)
	return players, nil
}

func (s *Storage) IncrementClickCount(ctx context.Context, id model.UserID, at time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, model.ErrUserNotActive
	}
	user.ClickCount++
	user.UpdatedAt = at
	return user.Clone(), nil
}

func (s *Storage) UpdateStatus(ctx context.Context, id model.UserID, transition storage.StatusTransition, at time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	next, err := transition(user.Status)
	if err != nil {
		return nil, err
	}
	user.Status = next
	user.UpdatedAt = at
	return user.Clone(), nil
}

// Count returns the number of stored users
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
