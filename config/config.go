// Package config loads server settings from defaults, an optional YAML file,
// BUTACA_* environment variables and command-line flags, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	MinSecretLength = 32
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	BasePath        string        `yaml:"base_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Store          string        `yaml:"store"` // postgres or memory
	DSN            string        `yaml:"dsn"`
	MaxConns       int32         `yaml:"max_conns"`
	MinConns       int32         `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Migrate        bool          `yaml:"migrate"` // run embedded migrations on start
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	Issuer   string        `yaml:"issuer"`
	Hasher   string        `yaml:"hasher"` // argon2 or bcrypt
}

type CookieConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Domain   string `yaml:"domain"`
	Secure   bool   `yaml:"secure"`
	SameSite string `yaml:"same_site"` // Lax, Strict or None
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns a configuration that runs locally once a secret is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BasePath:        "/api",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Store:          StorePostgres,
			MaxConns:       10,
			MinConns:       2,
			ConnectTimeout: 5 * time.Second,
			Migrate:        true,
		},
		Auth: AuthConfig{
			TokenTTL: 365 * 24 * time.Hour,
			Hasher:   "argon2",
		},
		Cookie: CookieConfig{
			Enabled:  true,
			Name:     "auth_token",
			Path:     "/",
			SameSite: "Lax",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) Validate() error {
	return validation.Errors{
		"server":   c.Server.validate(),
		"database": c.Database.validate(),
		"auth":     c.Auth.validate(),
		"cookie":   c.Cookie.validate(),
		"log":      c.Log.validate(),
	}.Filter()
}

func (s ServerConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.BasePath, validation.Required, validation.By(leadingSlash)),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (d DatabaseConfig) validate() error {
	var dsnRules []validation.Rule
	if d.Store == StorePostgres {
		dsnRules = append(dsnRules, validation.Required)
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.Store, validation.Required, validation.In(StorePostgres, StoreMemory)),
		validation.Field(&d.DSN, dsnRules...),
		validation.Field(&d.MaxConns, validation.Min(int32(1))),
		validation.Field(&d.MinConns, validation.Min(int32(0)), validation.Max(d.MaxConns)),
	)
}

func (a AuthConfig) validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Secret, validation.Required, validation.Length(MinSecretLength, 0)),
		validation.Field(&a.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.Hasher, validation.Required, validation.In("argon2", "bcrypt")),
	)
}

func (c CookieConfig) validate() error {
	var nameRules []validation.Rule
	if c.Enabled {
		nameRules = append(nameRules, validation.Required)
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, nameRules...),
		validation.Field(&c.Domain, is.Host),
		validation.Field(&c.SameSite, validation.In("Lax", "Strict", "None")),
	)
}

func (l LogConfig) validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func leadingSlash(value interface{}) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return fmt.Errorf("must start with '/'")
	}
	return nil
}
