package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lborres/butaca/adapters/memory"
	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/crypto"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

const testSecret = "test-secret-that-is-long-enough-123456"

// FakeStore wraps the memory store and exposes error fields for behavior
// injection.
type FakeStore struct {
	*memory.Store

	mu           sync.Mutex
	createErr    error
	getErr       error
	setClaimErr  error
	getClaimsErr error
	listErr      error
	pingErr      error
	setClaimHits int
}

var _ core.CredentialStore = (*FakeStore)(nil)

func NewFakeStore() *FakeStore {
	return &FakeStore{Store: memory.New()}
}

func (f *FakeStore) CreateUser(ctx context.Context, u *core.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Store.CreateUser(ctx, u)
}

func (f *FakeStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.GetUserByEmail(ctx, email)
}

func (f *FakeStore) GetClaims(ctx context.Context, userID string) ([]core.Claim, error) {
	if f.getClaimsErr != nil {
		return nil, f.getClaimsErr
	}
	return f.Store.GetClaims(ctx, userID)
}

func (f *FakeStore) SetClaim(ctx context.Context, userID, claimType, value string) error {
	f.mu.Lock()
	f.setClaimHits++
	f.mu.Unlock()
	if f.setClaimErr != nil {
		return f.setClaimErr
	}
	return f.Store.SetClaim(ctx, userID, claimType, value)
}

func (f *FakeStore) ListUsers(ctx context.Context, page core.PageRequest) ([]*core.User, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.Store.ListUsers(ctx, page)
}

func (f *FakeStore) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return f.Store.Ping(ctx)
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv wires the services over a FakeStore
type testEnv struct {
	store  *FakeStore
	claims *ClaimManager
	tokens *TokenIssuer
	auth   *AuthService
	clock  *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := NewFakeStore()
	claims := NewClaimManager(store, nil)
	tokens, err := NewTokenIssuer(core.TokenConfig{Secret: testSecret, TTL: time.Hour}, claims, nil)
	require.NoError(t, err)

	clock := newFakeClock()
	tokens.now = clock.Now

	hasher := &crypto.Argon2{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	return &testEnv{
		store:  store,
		claims: claims,
		tokens: tokens,
		auth:   NewAuthService(store, hasher, claims, tokens, nil),
		clock:  clock,
	}
}

// register creates a user through the service and fails the test on error
func (e *testEnv) register(t *testing.T, email string) *core.AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), core.Credentials{Email: email, Password: "Aa123456!"})
	require.NoError(t, err)
	return res
}
