package butaca

import (
	"fmt"
	"time"

	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/crypto"
	"github.com/lborres/butaca/pkg/logging"
	"github.com/lborres/butaca/services"
)

// interfaces
type (
	CredentialStore = core.CredentialStore
	TokenValidator  = core.TokenValidator

	PasswordHandler = crypto.PasswordHandler
	Logger          = logging.Logger
)

type (
	User        = core.User
	UserSummary = core.UserSummary
	Claim       = core.Claim
	Credentials = core.Credentials
	AuthResult  = core.AuthResult
	PageRequest = core.PageRequest
	Principal   = core.Principal
	Endpoint    = core.Endpoint
	Access      = core.Access
)

const (
	defaultBasePath   = "/api"
	defaultCookieName = "auth_token"
	defaultCookiePath = "/"
	defaultSameSite   = "Lax"
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2 = crypto.NewArgon2
	NewBcrypt = crypto.NewBcrypt
)

var (
	ErrUserExists         = core.ErrUserExists
	ErrUserNotFound       = core.ErrUserNotFound
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrValidationFailed   = core.ErrValidationFailed
)

var (
	ErrUnauthenticated   = core.ErrUnauthenticated
	ErrMissingToken      = core.ErrMissingToken
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrTokenMalformed    = core.ErrTokenMalformed
	ErrTokenExpired      = core.ErrTokenExpired
	ErrForbidden         = core.ErrForbidden
)

var (
	ErrStoreRequired       = core.ErrStoreRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// HTTPAdapter mounts the registered endpoints on a web framework
type HTTPAdapter interface {
	RegisterRoutes(b *Butaca) error
}

// CookieConfig describes the HttpOnly cookie carrying the token
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite string
}

type Config struct {
	Secret string

	Store CredentialStore

	HTTP HTTPAdapter

	// Optional config
	TokenTTL       time.Duration
	Issuer         string
	PasswordHasher PasswordHandler
	Logger         Logger
	BasePath       string
	Cookie         CookieConfig
	DisableCookie  bool

	// Endpoints are registered after the base endpoints. The HTTP adapter
	// must know a handler for each OperationID.
	Endpoints []Endpoint
}

type Butaca struct {
	Auth      *services.AuthService
	Claims    *services.ClaimManager
	Tokens    *services.TokenIssuer
	Endpoints *services.EndpointRegistry
	Logger    Logger
	BasePath  string

	// Cookie is nil when cookies are disabled
	Cookie *CookieConfig
}

func New(config Config) (*Butaca, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < services.MinSecretLength {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, services.MinSecretLength)
	}
	if config.Store == nil {
		return nil, ErrStoreRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	log := config.Logger
	if log == nil {
		log = logging.Nop()
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = &crypto.MultiHasher{Primary: crypto.NewArgon2()}
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	var cookie *CookieConfig
	if !config.DisableCookie {
		c := config.Cookie
		if c.Name == "" {
			c.Name = defaultCookieName
		}
		if c.Path == "" {
			c.Path = defaultCookiePath
		}
		if c.SameSite == "" {
			c.SameSite = defaultSameSite
		}
		cookie = &c
	}

	claims := services.NewClaimManager(config.Store, log)
	tokens, err := services.NewTokenIssuer(core.TokenConfig{
		Secret: config.Secret,
		TTL:    config.TokenTTL,
		Issuer: config.Issuer,
	}, claims, log)
	if err != nil {
		return nil, err
	}

	registry := services.NewEndpointRegistry()
	if len(config.Endpoints) > 0 {
		if err := registry.Register(config.Endpoints); err != nil {
			return nil, err
		}
	}

	b := &Butaca{
		Auth:      services.NewAuthService(config.Store, passwordHasher, claims, tokens, log),
		Claims:    claims,
		Tokens:    tokens,
		Endpoints: registry,
		Logger:    log,
		BasePath:  basePath,
		Cookie:    cookie,
	}

	if err := config.HTTP.RegisterRoutes(b); err != nil {
		return nil, err
	}

	return b, nil
}
