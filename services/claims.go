package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/logging"
)

// ClaimManager reads and writes per-user authorization claims
type ClaimManager struct {
	db  core.CredentialStore
	log logging.Logger
}

func NewClaimManager(db core.CredentialStore, log logging.Logger) *ClaimManager {
	if log == nil {
		log = logging.Nop()
	}
	return &ClaimManager{db: db, log: log.With("component", "claims")}
}

func (m *ClaimManager) lookup(ctx context.Context, email string) (*core.User, error) {
	user, err := m.db.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// GrantAdmin leaves the user with exactly one ("is-admin", "true") claim.
// Calling it twice is the same as calling it once.
func (m *ClaimManager) GrantAdmin(ctx context.Context, email string) error {
	user, err := m.lookup(ctx, email)
	if err != nil {
		return err
	}

	if err := m.db.SetClaim(ctx, user.ID, core.ClaimIsAdmin, core.ClaimTrue); err != nil {
		return fmt.Errorf("failed to set admin claim: %w", err)
	}

	m.log.Info(ctx, "admin claim granted", "email", user.Email)
	return nil
}

// RevokeAdmin removes ("is-admin", "true"). Revoking a non-admin is a no-op.
func (m *ClaimManager) RevokeAdmin(ctx context.Context, email string) error {
	user, err := m.lookup(ctx, email)
	if err != nil {
		return err
	}

	if err := m.db.RemoveClaim(ctx, user.ID, core.AdminClaim); err != nil {
		return fmt.Errorf("failed to remove admin claim: %w", err)
	}

	m.log.Info(ctx, "admin claim revoked", "email", user.Email)
	return nil
}

// IsAdmin reports whether the stored claims contain ("is-admin", "true")
func (m *ClaimManager) IsAdmin(ctx context.Context, email string) (bool, error) {
	user, err := m.lookup(ctx, email)
	if err != nil {
		return false, err
	}

	claims, err := m.Claims(ctx, user.ID)
	if err != nil {
		return false, err
	}

	for _, c := range claims {
		if c == core.AdminClaim {
			return true, nil
		}
	}
	return false, nil
}

// AddClaim attaches an arbitrary claim. Registered token names are refused,
// and the admin claim only changes through GrantAdmin and RevokeAdmin.
func (m *ClaimManager) AddClaim(ctx context.Context, email string, claim core.Claim) error {
	if claim.Type == "" || core.IsReservedClaim(claim.Type) {
		return fmt.Errorf("%w: claim type %q is reserved", core.ErrValidationFailed, claim.Type)
	}
	if claim.Type == core.ClaimIsAdmin {
		return fmt.Errorf("%w: claim type %q is managed by GrantAdmin and RevokeAdmin", core.ErrValidationFailed, claim.Type)
	}

	user, err := m.lookup(ctx, email)
	if err != nil {
		return err
	}

	if err := m.db.AddClaim(ctx, user.ID, claim); err != nil {
		return fmt.Errorf("failed to add claim: %w", err)
	}
	return nil
}

// Claims returns every stored claim of the user
func (m *ClaimManager) Claims(ctx context.Context, userID string) ([]core.Claim, error) {
	claims, err := m.db.GetClaims(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}
	return claims, nil
}
