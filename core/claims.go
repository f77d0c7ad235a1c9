package core

import "time"

const (
	// ClaimEmail carries the user's email inside every token
	ClaimEmail = "email"
	// ClaimIsAdmin marks elevated authorization
	ClaimIsAdmin = "is-admin"
	// ClaimTrue is the only value an admin claim is ever stored with
	ClaimTrue = "true"
)

// AdminClaim is the claim granted by make-admin
var AdminClaim = Claim{Type: ClaimIsAdmin, Value: ClaimTrue}

// reservedClaims are registered JWT names a stored claim may never override
var reservedClaims = map[string]struct{}{
	ClaimEmail: {},
	"exp":      {},
	"iat":      {},
	"nbf":      {},
	"iss":      {},
	"aud":      {},
	"sub":      {},
	"jti":      {},
}

// IsReservedClaim reports whether a claim type collides with a token field
func IsReservedClaim(claimType string) bool {
	_, ok := reservedClaims[claimType]
	return ok
}

// Principal is the validated identity carried by an incoming token
type Principal struct {
	email     string
	claims    []Claim
	expiresAt time.Time
	tokenID   string
}

// NewPrincipal builds a Principal from already validated token contents
func NewPrincipal(email string, claims []Claim, expiresAt time.Time, tokenID string) *Principal {
	cp := make([]Claim, len(claims))
	copy(cp, claims)
	return &Principal{
		email:     email,
		claims:    cp,
		expiresAt: expiresAt,
		tokenID:   tokenID,
	}
}

// Email returns the email claim
func (p *Principal) Email() string {
	return p.email
}

// Claims returns a copy of the non-registered claims
func (p *Principal) Claims() []Claim {
	cp := make([]Claim, len(p.claims))
	copy(cp, p.claims)
	return cp
}

// HasClaim reports whether the token carries the exact (type, value) pair
func (p *Principal) HasClaim(claimType, value string) bool {
	for _, c := range p.claims {
		if c.Type == claimType && c.Value == value {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the token was issued while the user was an admin
func (p *Principal) IsAdmin() bool {
	return p.HasClaim(ClaimIsAdmin, ClaimTrue)
}

// ExpiresAt returns the token expiration
func (p *Principal) ExpiresAt() time.Time {
	return p.expiresAt
}

// TokenID returns the jti of the token
func (p *Principal) TokenID() string {
	return p.tokenID
}
