package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "BUTACA_"

// Flags are the command-line options understood by the server binary
type Flags struct {
	ConfigPath string
	EnvFile    string
	GrantAdmin string
	GenSecret  bool

	set     map[string]bool
	addr    string
	dsn     string
	store   string
	secret  string
	logLvl  string
	migrate bool
}

// ParseFlags parses args without touching the global flag set
func ParseFlags(name string, args []string, output io.Writer) (*Flags, error) {
	f := &Flags{set: make(map[string]bool)}

	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(output)
	fset.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	fset.StringVar(&f.EnvFile, "env-file", ".env", "optional dotenv file loaded before BUTACA_* variables")
	fset.StringVar(&f.GrantAdmin, "grant-admin", "", "grant the admin claim to an existing user and exit")
	fset.BoolVar(&f.GenSecret, "gen-secret", false, "print a random signing secret and exit")
	fset.StringVar(&f.addr, "a", "", "listen address, e.g. :8080")
	fset.StringVar(&f.dsn, "d", "", "PostgreSQL DSN")
	fset.StringVar(&f.store, "store", "", "credential store: postgres or memory")
	fset.StringVar(&f.secret, "secret", "", "token signing secret")
	fset.StringVar(&f.logLvl, "log-level", "", "debug, info, warn or error")
	fset.BoolVar(&f.migrate, "migrate", true, "run database migrations on start")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	fset.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	return f, nil
}

// Load builds the configuration: defaults, YAML file, environment, flags.
// The result is validated.
func Load(f *Flags, lookupEnv func(string) (string, bool)) (*Config, error) {
	if f == nil {
		f = &Flags{set: map[string]bool{}}
	}

	cfg, err := LoadYAML(f.ConfigPath, Default)
	if err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	if err := loadDotEnv(f.EnvFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if err := ApplyEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}

	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadYAML overlays the file at path on the value built by fn. An empty path
// or a missing file yields the defaults.
func LoadYAML[T any](path string, fn func() *T) (*T, error) {
	cfg := fn()

	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv never overrides variables already present in the environment
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides cfg with BUTACA_* variables
func ApplyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("ADDR", &cfg.Server.Addr)
	str("BASE_PATH", &cfg.Server.BasePath)
	str("STORE", &cfg.Database.Store)
	str("DATABASE_DSN", &cfg.Database.DSN)
	str("SECRET", &cfg.Auth.Secret)
	str("ISSUER", &cfg.Auth.Issuer)
	str("HASHER", &cfg.Auth.Hasher)
	str("COOKIE_NAME", &cfg.Cookie.Name)
	str("COOKIE_DOMAIN", &cfg.Cookie.Domain)
	str("COOKIE_SAME_SITE", &cfg.Cookie.SameSite)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(
		dur("TOKEN_TTL", &cfg.Auth.TokenTTL),
		dur("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout),
		boolean("DATABASE_MIGRATE", &cfg.Database.Migrate),
		boolean("COOKIE_ENABLED", &cfg.Cookie.Enabled),
		boolean("COOKIE_SECURE", &cfg.Cookie.Secure),
	)
}

// apply copies explicitly set flags onto cfg
func (f *Flags) apply(cfg *Config) {
	if f.set["a"] {
		cfg.Server.Addr = f.addr
	}
	if f.set["d"] {
		cfg.Database.DSN = f.dsn
	}
	if f.set["store"] {
		cfg.Database.Store = f.store
	}
	if f.set["secret"] {
		cfg.Auth.Secret = f.secret
	}
	if f.set["log-level"] {
		cfg.Log.Level = f.logLvl
	}
	if f.set["migrate"] {
		cfg.Database.Migrate = f.migrate
	}
}
