package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/crypto"
	"github.com/lborres/butaca/pkg/logging"
)

const (
	DefaultTokenTTL = 365 * 24 * time.Hour
	MinSecretLength = 32
)

// TokenIssuer signs and validates HS256 tokens carrying the user's email and
// stored claims.
//
// Tokens are not persisted and cannot be revoked: a claim granted or removed
// after issuance shows up only in tokens issued afterwards.
type TokenIssuer struct {
	claims *ClaimManager
	secret []byte
	ttl    time.Duration
	issuer string
	ids    *crypto.NanoID
	now    func() time.Time
	log    logging.Logger
}

var (
	_ core.TokenIssuer    = (*TokenIssuer)(nil)
	_ core.TokenValidator = (*TokenIssuer)(nil)
)

func NewTokenIssuer(cfg core.TokenConfig, claims *ClaimManager, log logging.Logger) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, core.ErrSecretRequired
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w - minimum of %d characters", core.ErrSecretTooShort, MinSecretLength)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if log == nil {
		log = logging.Nop()
	}

	ids, err := crypto.NewNanoID(crypto.URLAlphabet)
	if err != nil {
		return nil, err
	}

	return &TokenIssuer{
		claims: claims,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		ids:    ids,
		now:    time.Now,
		log:    log.With("component", "tokens"),
	}, nil
}

// Issue builds a token for user from its current stored claims
func (t *TokenIssuer) Issue(ctx context.Context, user *core.User) (*core.AuthResult, error) {
	// Step 1: Load stored claims
	stored, err := t.claims.Claims(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// Step 2: Build the claim set
	now := t.now().UTC().Truncate(time.Second)
	expiration := now.Add(t.ttl)

	jti, err := t.ids.Generate(0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	mc := jwt.MapClaims{}
	for typ, values := range groupClaims(stored) {
		if len(values) == 1 {
			mc[typ] = values[0]
		} else {
			mc[typ] = values
		}
	}
	mc[core.ClaimEmail] = user.Email
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(expiration)
	mc["jti"] = jti
	if t.issuer != "" {
		mc["iss"] = t.issuer
	}

	// Step 3: Sign
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	t.log.Debug(ctx, "token issued", "email", user.Email, "token", crypto.Fingerprint(signed), "exp", expiration)

	return &core.AuthResult{
		Token:      signed,
		Expiration: expiration,
	}, nil
}

// groupClaims drops reserved names and groups values by type
func groupClaims(claims []core.Claim) map[string][]string {
	out := make(map[string][]string, len(claims))
	for _, c := range claims {
		if core.IsReservedClaim(c.Type) {
			continue
		}
		out[c.Type] = append(out[c.Type], c.Value)
	}
	for _, values := range out {
		sort.Strings(values)
	}
	return out
}

// Validate checks signature, algorithm and expiry and returns the Principal.
// Failures wrap core.ErrUnauthenticated.
func (t *TokenIssuer) Validate(raw string) (*core.Principal, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrMissingToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrTokenMalformed)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrTokenMalformed)
	}

	email, _ := mc[core.ClaimEmail].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrTokenMalformed)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthenticated, core.ErrTokenMalformed)
	}
	jti, _ := mc["jti"].(string)

	return core.NewPrincipal(email, principalClaims(mc), exp.Time, jti), nil
}

// principalClaims turns string and string-array entries back into claims
func principalClaims(mc jwt.MapClaims) []core.Claim {
	var out []core.Claim
	for typ, v := range mc {
		if core.IsReservedClaim(typ) {
			continue
		}
		switch val := v.(type) {
		case string:
			out = append(out, core.Claim{Type: typ, Value: val})
		case []interface{}:
			for _, item := range val {
				if s, ok := item.(string); ok {
					out = append(out, core.Claim{Type: typ, Value: s})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Value < out[j].Value
	})
	return out
}
