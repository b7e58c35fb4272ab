//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/app/entity"
	"github.com/vibast-solutions/ms-go-userauth/app/repository"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("userauth"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func startMySQL(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("userauth"),
		tcmysql.WithUsername("user"),
		tcmysql.WithPassword("password"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository_Integration(t *testing.T) {
	tests := []struct {
		name    string
		dialect repository.Dialect
		start   func(t *testing.T, ctx context.Context) *sql.DB
	}{
		{name: "postgres", dialect: repository.DialectPostgres, start: startPostgres},
		{name: "mysql", dialect: repository.DialectMySQL, start: startMySQL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := tt.start(t, ctx)

			require.NoError(t, repository.Migrate(ctx, db, tt.dialect, repository.MigrateUp))

			repo := repository.NewUserRepository(db, tt.dialect)
			now := time.Now().UTC().Truncate(time.Microsecond)

			user := &entity.User{
				FirstName:    "Jane",
				LastName:     "Doe",
				Email:        "jane@x.io",
				PasswordHash: "hash",
				EmailVerification: &entity.PendingToken{
					Hash:      "v-digest",
					ExpiresAt: now.Add(time.Hour),
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			require.NoError(t, repo.Create(ctx, user))
			require.NotZero(t, user.ID)

			err := repo.Create(ctx, &entity.User{Email: "jane@x.io", PasswordHash: "x", CreatedAt: now, UpdatedAt: now})
			require.True(t, errors.Is(err, repository.ErrDuplicateEmail), "got %v", err)

			found, err := repo.FindByEmail(ctx, "jane@x.io")
			require.NoError(t, err)
			require.Equal(t, user.ID, found.ID)
			require.Empty(t, found.PasswordHash)

			withPw, err := repo.FindByIDWithPassword(ctx, user.ID)
			require.NoError(t, err)
			require.Equal(t, "hash", withPw.PasswordHash)

			byToken, err := repo.FindByVerificationTokenHash(ctx, "v-digest", now)
			require.NoError(t, err)
			require.NotNil(t, byToken)

			expired, err := repo.FindByVerificationTokenHash(ctx, "v-digest", now.Add(2*time.Hour))
			require.NoError(t, err)
			require.Nil(t, expired)

			found.MarkEmailVerified()
			require.NoError(t, repo.Update(ctx, found))
			reread, err := repo.FindByID(ctx, user.ID)
			require.NoError(t, err)
			require.True(t, reread.IsEmailVerified)
			require.Nil(t, reread.EmailVerification)

			require.NoError(t, repo.SetRefreshTokenHash(ctx, user.ID, "r1"))
			ok, err := repo.RotateRefreshTokenHash(ctx, user.ID, "r1", "r2")
			require.NoError(t, err)
			require.True(t, ok)
			ok, err = repo.RotateRefreshTokenHash(ctx, user.ID, "r1", "r3")
			require.NoError(t, err)
			require.False(t, ok)

			byRefresh, err := repo.FindByRefreshTokenHash(ctx, "r2")
			require.NoError(t, err)
			require.Equal(t, user.ID, byRefresh.ID)

			withPw.PasswordHash = "new-hash"
			withPw.RefreshTokenHash = ""
			require.NoError(t, repo.UpdatePassword(ctx, withPw))
			byRefresh, err = repo.FindByRefreshTokenHash(ctx, "r2")
			require.NoError(t, err)
			require.Nil(t, byRefresh)

			stale := &entity.User{
				Email:        "stale@x.io",
				PasswordHash: "hash",
				Abandoned:    true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			require.NoError(t, repo.Create(ctx, stale))
			n, err := repo.DeleteStale(ctx, now)
			require.NoError(t, err)
			require.Equal(t, int64(1), n)

			require.NoError(t, repository.Migrate(ctx, db, tt.dialect, repository.MigrateDown))
		})
	}
}
