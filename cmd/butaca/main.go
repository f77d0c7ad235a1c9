package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/butaca"
	fiberadapter "github.com/lborres/butaca/adapters/fiber"
	"github.com/lborres/butaca/adapters/memory"
	pgxadapter "github.com/lborres/butaca/adapters/pgx"
	"github.com/lborres/butaca/config"
	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/crypto"
	"github.com/lborres/butaca/pkg/logging"
	"github.com/lborres/butaca/services"
)

var errGrantAdminMemory = errors.New("-grant-admin requires a persistent store, not memory")

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}",

		// Request details
		"${method}|${path}|${queryParams}",

		// errors
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags, err := config.ParseFlags("butaca", args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if flags.GenSecret {
		secret, err := crypto.GenerateSecret(0)
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		fmt.Fprintln(stdout, secret)
		return nil
	}

	cfg, err := config.Load(flags, nil)
	if err != nil {
		return err
	}

	// the grant would vanish with the process
	if flags.GrantAdmin != "" && cfg.Database.Store == config.StoreMemory {
		return errGrantAdminMemory
	}

	log, err := logging.New(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(log.Slog())

	store, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if flags.GrantAdmin != "" {
		return grantAdmin(ctx, store, log, flags.GrantAdmin)
	}

	hasher, err := crypto.NewPasswordHandler(cfg.Auth.Hasher)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:      "butaca",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: fiberadapter.NewErrorHandler(log),
	})

	app.Use(requestid.New())
	app.Use(recoverer.New())
	app.Use(logger.New(logger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	_, err = butaca.New(butaca.Config{
		Secret:         cfg.Auth.Secret,
		Store:          store,
		HTTP:           fiberadapter.New(app),
		TokenTTL:       cfg.Auth.TokenTTL,
		Issuer:         cfg.Auth.Issuer,
		PasswordHasher: hasher,
		Logger:         log,
		BasePath:       cfg.Server.BasePath,
		Cookie: butaca.CookieConfig{
			Name:     cfg.Cookie.Name,
			Path:     cfg.Cookie.Path,
			Domain:   cfg.Cookie.Domain,
			Secure:   cfg.Cookie.Secure,
			SameSite: cfg.Cookie.SameSite,
		},
		DisableCookie: !cfg.Cookie.Enabled,
	})
	if err != nil {
		return fmt.Errorf("could not create butaca instance: %w", err)
	}

	return serve(ctx, app, cfg.Server, log)
}

// openStore returns the configured credential store and its cleanup
func openStore(ctx context.Context, cfg config.DatabaseConfig, log logging.Logger) (core.CredentialStore, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn(ctx, "using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxadapter.Connect(connectCtx, pgxadapter.PoolConfig{
		DSN:            cfg.DSN,
		MaxConns:       cfg.MaxConns,
		MinConns:       cfg.MinConns,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	store := pgxadapter.New(pool)
	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info(ctx, "migrations applied")
	}

	return store, pool.Close, nil
}

// grantAdmin bootstraps the first admin, which make-admin cannot do
func grantAdmin(ctx context.Context, store core.CredentialStore, log logging.Logger, email string) error {
	if err := services.NewClaimManager(store, log).GrantAdmin(ctx, email); err != nil {
		return fmt.Errorf("grant admin to %s: %w", email, err)
	}
	log.Info(ctx, "admin granted", "email", email)
	return nil
}

func serve(ctx context.Context, app *fiber.App, cfg config.ServerConfig, log logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "base_path", cfg.BasePath)
		errCh <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
