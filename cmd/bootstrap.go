package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-userauth/app/notification"
	"github.com/vibast-solutions/ms-go-userauth/app/repository"
	"github.com/vibast-solutions/ms-go-userauth/app/security"
	"github.com/vibast-solutions/ms-go-userauth/app/service"
	"github.com/vibast-solutions/ms-go-userauth/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.Log.Format)
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err = configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDB opens and pings the configured database. The driver name doubles as
// the repository dialect.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, repository.Dialect, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return db, repository.Dialect(cfg.Database.Driver), nil
}

func txFunc(db *sql.DB, dialect repository.Dialect) service.TxFunc {
	return func(ctx context.Context, fn func(ctx context.Context, repo service.UserRepository) error) error {
		return repository.WithTx(ctx, db, nil, func(ctx context.Context, tx repository.DBTX) error {
			return fn(ctx, repository.NewUserRepository(tx, dialect))
		})
	}
}

func newUserAuthService(cfg *config.Config, db *sql.DB, dialect repository.Dialect) (service.UserAuthService, error) {
	hasher, err := security.NewPasswordHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	return service.NewUserAuthService(
		repository.NewUserRepository(db, dialect),
		hasher,
		security.NewTokenIssuer(cfg.JWT),
		notification.NewDispatcher(cfg.Mail),
		cfg,
		service.WithTx(txFunc(db, dialect)),
	), nil
}
