package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/crypto"
	"github.com/lborres/butaca/pkg/logging"
)

type AuthService struct {
	db             core.CredentialStore
	passwordHasher crypto.PasswordHandler
	claims         *ClaimManager
	tokens         *TokenIssuer
	log            logging.Logger
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(db core.CredentialStore, passwordHasher crypto.PasswordHandler, claims *ClaimManager, tokens *TokenIssuer, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{
		db:             db,
		passwordHasher: passwordHasher,
		claims:         claims,
		tokens:         tokens,
		log:            log.With("component", "auth"),
	}
}

// Register creates a user from credentials and returns its first token
func (s *AuthService) Register(ctx context.Context, input core.Credentials) (*core.AuthResult, error) {
	// Step 1: Validate input
	if err := core.ValidateCredentials(input); err != nil {
		return nil, err
	}
	email := core.NormalizeEmail(input.Email)

	// Step 2: Hash the password
	hashedPassword, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 3: Create the user. The store enforces email uniqueness.
	user := &core.User{
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrUserExists) {
			return nil, core.ValidationErrors{core.DuplicateUserName(email)}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Step 4: Issue a token
	result, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.Info(ctx, "user registered", "email", email, "user_id", user.ID)
	return result, nil
}

// Login verifies credentials. Unknown email and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, input core.Credentials) (*core.AuthResult, error) {
	if err := core.ValidateLogin(input); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	email := core.NormalizeEmail(input.Email)

	// Step 1: Find the user by email
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			s.log.Info(ctx, "login failed", "email", email, "reason", "unknown email")
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Step 2: Verify the password
	valid, err := s.passwordHasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		s.log.Info(ctx, "login failed", "email", email, "reason", "wrong password")
		return nil, core.ErrInvalidCredentials
	}

	// Step 3: Issue a token
	result, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.Info(ctx, "user logged in", "email", user.Email)
	return result, nil
}

func (s *AuthService) PromoteToAdmin(ctx context.Context, email string) error {
	return s.claims.GrantAdmin(ctx, email)
}

func (s *AuthService) DemoteFromAdmin(ctx context.Context, email string) error {
	return s.claims.RevokeAdmin(ctx, email)
}

// CheckIsAdmin reads the stored claims of the principal's user
func (s *AuthService) CheckIsAdmin(ctx context.Context, principal *core.Principal) (bool, error) {
	if principal == nil || principal.Email() == "" {
		return false, core.ErrUnauthenticated
	}
	return s.claims.IsAdmin(ctx, principal.Email())
}

// ListUsers returns one page of users ordered by email and the total count
func (s *AuthService) ListUsers(ctx context.Context, page core.PageRequest) ([]core.UserSummary, int, error) {
	users, total, err := s.db.ListUsers(ctx, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]core.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, core.UserSummary{ID: u.ID, Email: u.Email})
	}
	return out, total, nil
}

// Health reports whether the credential store is reachable
func (s *AuthService) Health(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("credential store unavailable: %w", err)
	}
	return nil
}
