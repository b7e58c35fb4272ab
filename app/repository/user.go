package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/app/entity"
)

var ErrHalfSetToken = errors.New("pending token has hash without expiry or expiry without hash")

const (
	userProfileColumns = `id, first_name, last_name, email, is_email_verified,
		       email_verification_token_hash, email_verification_expires_at,
		       password_reset_token_hash, password_reset_expires_at,
		       refresh_token_hash, abandoned, created_at, updated_at`
	userCredentialColumns = `id, first_name, last_name, email, password_hash, is_email_verified,
		       email_verification_token_hash, email_verification_expires_at,
		       password_reset_token_hash, password_reset_expires_at,
		       refresh_token_hash, abandoned, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// UserRepository persists users. Default reads never select the password
// hash; the WithPassword variants exist for the flows that verify it.
type UserRepository struct {
	db      DBTX
	dialect Dialect
}

func NewUserRepository(db DBTX, dialect Dialect) *UserRepository {
	if dialect == "" {
		dialect = DialectMySQL
	}
	return &UserRepository{db: db, dialect: dialect}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	verifyHash, verifyExp := pendingColumns(user.EmailVerification)
	resetHash, resetExp := pendingColumns(user.PasswordReset)

	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, is_email_verified,
			email_verification_token_hash, email_verification_expires_at,
			password_reset_token_hash, password_reset_expires_at,
			refresh_token_hash, abandoned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []any{
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.IsEmailVerified,
		verifyHash,
		verifyExp,
		resetHash,
		resetExp,
		nullString(user.RefreshTokenHash),
		user.Abandoned,
		user.CreatedAt,
		user.UpdatedAt,
	}

	if r.dialect == DialectPostgres {
		var id int64
		err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query+` RETURNING id`), args...).Scan(&id)
		if err != nil {
			return wrapWriteErr(err)
		}
		user.ID = uint64(id)
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapWriteErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `SELECT ` + userProfileColumns + ` FROM users WHERE id = ?`
	return r.findOne(ctx, query, false, id)
}

func (r *UserRepository) FindByIDWithPassword(ctx context.Context, id uint64) (*entity.User, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM users WHERE id = ?`
	return r.findOne(ctx, query, true, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userProfileColumns + ` FROM users WHERE email = ?`
	return r.findOne(ctx, query, false, email)
}

func (r *UserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM users WHERE email = ?`
	return r.findOne(ctx, query, true, email)
}

// FindByVerificationTokenHash matches only tokens that are still valid at now.
func (r *UserRepository) FindByVerificationTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error) {
	query := `SELECT ` + userProfileColumns + `
		FROM users WHERE email_verification_token_hash = ? AND email_verification_expires_at > ?`
	return r.findOne(ctx, query, false, hash, now)
}

// FindByResetTokenHash matches only tokens that are still valid at now.
func (r *UserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error) {
	query := `SELECT ` + userProfileColumns + `
		FROM users WHERE password_reset_token_hash = ? AND password_reset_expires_at > ?`
	return r.findOne(ctx, query, false, hash, now)
}

func (r *UserRepository) FindByRefreshTokenHash(ctx context.Context, hash string) (*entity.User, error) {
	if hash == "" {
		return nil, nil
	}
	query := `SELECT ` + userProfileColumns + ` FROM users WHERE refresh_token_hash = ?`
	return r.findOne(ctx, query, false, hash)
}

// Update writes profile and pending-token state. The password hash and the
// refresh digest have their own writers.
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	verifyHash, verifyExp := pendingColumns(user.EmailVerification)
	resetHash, resetExp := pendingColumns(user.PasswordReset)

	query := `
		UPDATE users SET
			first_name = ?,
			last_name = ?,
			email = ?,
			is_email_verified = ?,
			email_verification_token_hash = ?,
			email_verification_expires_at = ?,
			password_reset_token_hash = ?,
			password_reset_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		user.FirstName,
		user.LastName,
		user.Email,
		user.IsEmailVerified,
		verifyHash,
		verifyExp,
		resetHash,
		resetExp,
		user.UpdatedAt,
		user.ID,
	)
	return wrapWriteErr(err)
}

// UpdatePassword stores a new hash together with the reset pair and refresh
// digest, so a reset consumes its token and ends sessions in one statement.
func (r *UserRepository) UpdatePassword(ctx context.Context, user *entity.User) error {
	if user.PasswordHash == "" {
		return entity.ErrEmptyPassword
	}
	resetHash, resetExp := pendingColumns(user.PasswordReset)

	query := `
		UPDATE users SET
			password_hash = ?,
			password_reset_token_hash = ?,
			password_reset_expires_at = ?,
			refresh_token_hash = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		user.PasswordHash,
		resetHash,
		resetExp,
		nullString(user.RefreshTokenHash),
		user.UpdatedAt,
		user.ID,
	)
	return err
}

// SetRefreshTokenHash replaces the stored refresh digest. An empty hash
// clears it.
func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, userID uint64, hash string) error {
	query := `UPDATE users SET refresh_token_hash = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), nullString(hash), time.Now(), userID)
	return err
}

// RotateRefreshTokenHash swaps oldHash for newHash only if oldHash is still
// current. It reports false when another request already rotated it.
func (r *UserRepository) RotateRefreshTokenHash(ctx context.Context, userID uint64, oldHash, newHash string) (bool, error) {
	query := `UPDATE users SET refresh_token_hash = ?, updated_at = ? WHERE id = ? AND refresh_token_hash = ?`
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), nullString(newHash), time.Now(), userID, oldHash)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *UserRepository) Delete(ctx context.Context, userID uint64) error {
	query := `DELETE FROM users WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), userID)
	return err
}

func (r *UserRepository) MarkAbandoned(ctx context.Context, userID uint64) error {
	query := `UPDATE users SET abandoned = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), true, time.Now(), userID)
	return err
}

// DeleteStale removes abandoned registrations and unverified accounts whose
// verification window closed before cutoff.
func (r *UserRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM users
		WHERE abandoned = ?
		   OR (is_email_verified = ? AND email_verification_expires_at < ?)
	`
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), true, false, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) findOne(ctx context.Context, query string, withPassword bool, args ...any) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...), withPassword)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row rowScanner, withPassword bool) (*entity.User, error) {
	user := &entity.User{}
	var (
		verifyHash, resetHash, refreshHash sql.NullString
		verifyExp, resetExp                sql.NullTime
	)

	dest := []any{&user.ID, &user.FirstName, &user.LastName, &user.Email}
	if withPassword {
		dest = append(dest, &user.PasswordHash)
	}
	dest = append(dest,
		&user.IsEmailVerified,
		&verifyHash,
		&verifyExp,
		&resetHash,
		&resetExp,
		&refreshHash,
		&user.Abandoned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if user.EmailVerification, err = pendingFromColumns(verifyHash, verifyExp); err != nil {
		return nil, fmt.Errorf("user %d email verification: %w", user.ID, err)
	}
	if user.PasswordReset, err = pendingFromColumns(resetHash, resetExp); err != nil {
		return nil, fmt.Errorf("user %d password reset: %w", user.ID, err)
	}
	user.RefreshTokenHash = refreshHash.String

	return user, nil
}

func pendingColumns(p *entity.PendingToken) (sql.NullString, sql.NullTime) {
	if p == nil || p.Hash == "" {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: p.Hash, Valid: true}, sql.NullTime{Time: p.ExpiresAt, Valid: true}
}

func pendingFromColumns(hash sql.NullString, expiresAt sql.NullTime) (*entity.PendingToken, error) {
	hasHash := hash.Valid && hash.String != ""
	if hasHash != expiresAt.Valid {
		return nil, ErrHalfSetToken
	}
	if !hasHash {
		return nil, nil
	}
	return &entity.PendingToken{Hash: hash.String, ExpiresAt: expiresAt.Time}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func wrapWriteErr(err error) error {
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
	}
	return err
}
