// Package memory is a process-local core.CredentialStore for tests and
// single-instance development runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lborres/butaca/core"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]*core.User // by id
	byEmail map[string]string     // lower(email) -> id
	claims  map[string][]core.Claim
	now     func() time.Time
}

var _ core.CredentialStore = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]*core.User),
		byEmail: make(map[string]string),
		claims:  make(map[string][]core.Claim),
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return core.ErrUserExists
	}

	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[key] = u.ID
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) ListUsers(ctx context.Context, page core.PageRequest) ([]*core.User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	all := make([]*core.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].Email), strings.ToLower(all[j].Email)
		if a != b {
			return a < b
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	start := page.Offset()
	if start < 0 || start >= total {
		return []*core.User{}, total, nil
	}
	end := total
	if limit := page.Limit(); limit < total-start {
		end = start + limit
	}

	return all[start:end], total, nil
}

func (s *Store) GetClaims(ctx context.Context, userID string) ([]core.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, core.ErrUserNotFound
	}

	out := make([]core.Claim, len(s.claims[userID]))
	copy(out, s.claims[userID])
	return out, nil
}

func (s *Store) SetClaim(ctx context.Context, userID, claimType, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return core.ErrUserNotFound
	}

	kept := make([]core.Claim, 0, len(s.claims[userID])+1)
	for _, c := range s.claims[userID] {
		if c.Type != claimType {
			kept = append(kept, c)
		}
	}
	s.claims[userID] = append(kept, core.Claim{Type: claimType, Value: value})
	return nil
}

func (s *Store) RemoveClaim(ctx context.Context, userID string, claim core.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return core.ErrUserNotFound
	}

	kept := s.claims[userID][:0]
	for _, c := range s.claims[userID] {
		if c != claim {
			kept = append(kept, c)
		}
	}
	s.claims[userID] = kept
	return nil
}

// AddClaim appends a claim without replacing others of the same type
func (s *Store) AddClaim(ctx context.Context, userID string, claim core.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return core.ErrUserNotFound
	}
	for _, c := range s.claims[userID] {
		if c == claim {
			return nil
		}
	}
	s.claims[userID] = append(s.claims[userID], claim)
	return nil
}
