package fiber

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/butaca/core"
)

type localsKey int

const principalKey localsKey = iota

// PrincipalFrom returns the principal stored by RequireAuth, or nil
func PrincipalFrom(c fiber.Ctx) *core.Principal {
	p, _ := c.Locals(principalKey).(*core.Principal)
	return p
}

// RequireAuth validates the bearer token (or the auth cookie) and stores the
// principal in the context for downstream handlers.
func (a *Adapter) RequireAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, err := a.authenticate(c); err != nil {
			return a.writeError(c, err)
		}
		return c.Next()
	}
}

// RequireClaim admits principals whose token carries the exact pair. It
// expects RequireAuth to run first.
func (a *Adapter) RequireClaim(claimType, value string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := checkClaim(PrincipalFrom(c), claimType, value); err != nil {
			return a.writeError(c, err)
		}
		return c.Next()
	}
}

func (a *Adapter) RequireAdmin() fiber.Handler {
	return a.RequireClaim(core.ClaimIsAdmin, core.ClaimTrue)
}

// guard wraps h with the checks of an access tier
func (a *Adapter) guard(access core.Access, h fiber.Handler) fiber.Handler {
	if access == core.AccessAnonymous {
		return h
	}
	return func(c fiber.Ctx) error {
		p, err := a.authenticate(c)
		if err != nil {
			return a.writeError(c, err)
		}
		if access == core.AccessAdmin {
			if err := checkClaim(p, core.ClaimIsAdmin, core.ClaimTrue); err != nil {
				return a.writeError(c, err)
			}
		}
		return h(c)
	}
}

func (a *Adapter) authenticate(c fiber.Ctx) (*core.Principal, error) {
	raw, err := a.extractToken(c)
	if err != nil {
		return nil, err
	}
	p, err := a.tokens.Validate(raw)
	if err != nil {
		a.log.Debug(c.Context(), "token rejected", "path", c.Path(), "error", err)
		return nil, err
	}
	c.Locals(principalKey, p)
	return p, nil
}

func checkClaim(p *core.Principal, claimType, value string) error {
	if p == nil {
		return core.ErrUnauthenticated
	}
	if !p.HasClaim(claimType, value) {
		return core.ErrForbidden
	}
	return nil
}

// extractToken reads the Authorization header first, then falls back to the
// auth cookie. A present but malformed header is an error, not a fallback.
func (a *Adapter) extractToken(c fiber.Ctx) (string, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrInvalidAuthHeader)
		}
		return token, nil
	}

	if a.cookie != nil {
		if token := c.Cookies(a.cookie.Name); token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrMissingToken)
}
