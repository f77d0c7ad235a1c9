package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations
type UserStorage interface {
	// CreateUser persists u, filling ID and timestamps. Returns ErrUserExists
	// when the email is already registered.
	CreateUser(ctx context.Context, u *User) error

	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns one page ordered by email, ignoring case, then id, and
	// the total count. A page past the end is empty, not an error.
	ListUsers(ctx context.Context, page PageRequest) ([]*User, int, error)
}

// ClaimStorage defines per-user claim operations
type ClaimStorage interface {
	GetClaims(ctx context.Context, userID string) ([]Claim, error)

	// SetClaim atomically replaces every claim of claimType for the user with
	// the single (claimType, value) pair.
	SetClaim(ctx context.Context, userID, claimType, value string) error

	// AddClaim attaches the pair next to existing claims of the same type.
	// Adding a pair the user already holds is a no-op.
	AddClaim(ctx context.Context, userID string, claim Claim) error

	// RemoveClaim deletes the exact pair. Removing an absent claim is not an error.
	RemoveClaim(ctx context.Context, userID string, claim Claim) error
}

// CredentialStore is the persistence collaborator of the auth subsystem
type CredentialStore interface {
	UserStorage
	ClaimStorage

	Ping(ctx context.Context) error
}

// ============================================
// TOKEN PORTS
// ============================================

// TokenIssuer signs tokens for a user
type TokenIssuer interface {
	Issue(ctx context.Context, user *User) (*AuthResult, error)
}

// TokenValidator turns a raw bearer token into a Principal
type TokenValidator interface {
	Validate(raw string) (*Principal, error)
}

// TokenConfig configures token signing and validation
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides the operations HTTP adapters expose
type AuthHandler interface {
	Register(ctx context.Context, input Credentials) (*AuthResult, error)
	Login(ctx context.Context, input Credentials) (*AuthResult, error)
	PromoteToAdmin(ctx context.Context, email string) error
	DemoteFromAdmin(ctx context.Context, email string) error
	CheckIsAdmin(ctx context.Context, principal *Principal) (bool, error)
	ListUsers(ctx context.Context, page PageRequest) ([]UserSummary, int, error)
	Health(ctx context.Context) error
}
