package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ddanilenko/inkpost/internal/auth/domain"
	"github.com/ddanilenko/inkpost/internal/common/db"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

const uniqueViolationCode = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	UpdateRefreshToken(ctx context.Context, id string, tokenHash string) error
	RotateRefreshToken(ctx context.Context, id string, expectedHash string, newHash string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, refresh_token_hash, full_name, avatar_url, bio, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...interface{}) error }) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.RefreshTokenHash,
		&user.FullName,
		&user.AvatarURL,
		&user.Bio,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) error {
	start := time.Now()

	query := `
		INSERT INTO users (id, email, password_hash, full_name, avatar_url, bio)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.AvatarURL, user.Bio,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			db.MeasureQueryDuration("create user", start)
			return commonerrors.ErrEmailAlreadyExists
		}
		return db.HandleExecError(err, "create user", start)
	}

	db.MeasureQueryDuration("create user", start)
	return nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrUserNotFound, "find user by email", start)
	}

	db.MeasureQueryDuration("find user by email", start)
	return user, nil
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrUserNotFound, "find user by id", start)
	}

	db.MeasureQueryDuration("find user by id", start)
	return user, nil
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	start := time.Now()

	query := `
		UPDATE users
		SET full_name  = COALESCE($2, full_name),
		    avatar_url = COALESCE($3, avatar_url),
		    bio        = COALESCE($4, bio),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, update.FullName, update.AvatarURL, update.Bio))
	if err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrUserNotFound, "update profile", start)
	}

	db.MeasureQueryDuration("update profile", start)
	return user, nil
}

// UpdateRefreshToken overwrites the stored refresh token hash unconditionally.
// Login uses it to start a fresh session regardless of what was there before.
func (r *PgUserRepository) UpdateRefreshToken(ctx context.Context, id string, tokenHash string) error {
	start := time.Now()

	query := `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, tokenHash)
	if err != nil {
		return db.HandleExecError(err, "update refresh token", start)
	}
	if tag.RowsAffected() == 0 {
		db.MeasureQueryDuration("update refresh token", start)
		return commonerrors.ErrUserNotFound
	}

	db.MeasureQueryDuration("update refresh token", start)
	return nil
}

// RotateRefreshToken swaps the stored hash only if it still equals
// expectedHash. The compare and the swap run in a single UPDATE, so under
// concurrent refreshes with the same token exactly one caller wins; the rest
// see rowsAffected 0 and get (false, nil).
func (r *PgUserRepository) RotateRefreshToken(ctx context.Context, id string, expectedHash string, newHash string) (bool, error) {
	start := time.Now()

	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2`

	tag, err := r.pool.Exec(ctx, query, id, expectedHash, newHash)
	if err != nil {
		return false, db.HandleExecError(err, "rotate refresh token", start)
	}

	db.MeasureQueryDuration("rotate refresh token", start)
	return tag.RowsAffected() == 1, nil
}

func (r *PgUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	start := time.Now()

	query := `UPDATE users SET refresh_token_hash = NULL, updated_at = now() WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.HandleExecError(err, "clear refresh token", start)
	}

	db.MeasureQueryDuration("clear refresh token", start)
	return nil
}
