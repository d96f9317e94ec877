package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signup/internal/identity/models"
	"signup/internal/identity/store"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
	txcontext "signup/pkg/platform/tx"
)

// Schema creates the users table. Uniqueness on lower(username) and
// lower(email) is what actually closes the check-then-insert race; the
// service pre-checks exist only for friendlier error ordering.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id                        BIGSERIAL PRIMARY KEY,
    public_id                 UUID NOT NULL,
    username                  VARCHAR(30) NOT NULL,
    email                     VARCHAR(255) NOT NULL,
    created_at                TIMESTAMPTZ NOT NULL,
    email_verified            BOOLEAN NOT NULL DEFAULT FALSE,
    verification_token        TEXT,
    verification_token_expiry TIMESTAMPTZ,
    CONSTRAINT users_token_pairing CHECK (
        (verification_token IS NULL) = (verification_token_expiry IS NULL)
    )
);
CREATE UNIQUE INDEX IF NOT EXISTS users_public_id_key ON users (public_id);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (lower(username));
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS users_verification_token_key ON users (verification_token)
    WHERE verification_token IS NOT NULL;
`

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// Postgres implements the user store on database/sql with lib/pq. It honors
// a transaction carried in context so Register and Verify stay atomic.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `id, public_id, username, email, created_at, email_verified, verification_token, verification_token_expiry`

func (s *Postgres) CreateIfAvailable(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (public_id, username, email, created_at, email_verified, verification_token, verification_token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(user.PublicID),
		user.Username,
		user.Email,
		user.CreatedAt,
		user.EmailVerified,
		user.VerificationToken,
		user.VerificationTokenExpiry,
	)
	if err := row.Scan(&user.ID); err != nil {
		if conflict := conflictFrom(err, user); conflict != nil {
			return models.User{}, conflict
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Postgres) Update(ctx context.Context, user models.User) (models.User, error) {
	query := `
		UPDATE users
		SET email_verified = $2, verification_token = $3, verification_token_expiry = $4
		WHERE id = $1
	`
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		user.ID,
		user.EmailVerified,
		user.VerificationToken,
		user.VerificationTokenExpiry,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, fmt.Errorf("update user: rows affected: %w", err)
	}
	if affected == 0 {
		return models.User{}, sentinel.ErrNotFound
	}
	return user, nil
}

func (s *Postgres) FindByID(ctx context.Context, userID int64) (models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (s *Postgres) FindByPublicID(ctx context.Context, publicID id.UserID) (models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE public_id = $1`, uuid.UUID(publicID))
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *Postgres) FindByVerificationToken(ctx context.Context, token string) (models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var count int64
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *Postgres) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	var (
		user        models.User
		publicID    uuid.UUID
		tokenValue  sql.NullString
		tokenExpiry sql.NullTime
	)
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, arg)
	err := row.Scan(
		&user.ID,
		&publicID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
		&user.EmailVerified,
		&tokenValue,
		&tokenExpiry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	user.PublicID = id.UserID(publicID)
	if tokenValue.Valid {
		user.VerificationToken = &tokenValue.String
	}
	if tokenExpiry.Valid {
		user.VerificationTokenExpiry = &tokenExpiry.Time
	}
	return user, nil
}

// conflictFrom maps a unique-violation error onto the colliding field so the
// service reports the same conflict whether the pre-check or the index
// caught the duplicate.
func conflictFrom(err error, user models.User) *store.Conflict {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return &store.Conflict{Field: "username", Value: user.Username}
	case strings.Contains(pqErr.Constraint, "email"):
		return &store.Conflict{Field: "email", Value: user.Email}
	default:
		return &store.Conflict{Field: pqErr.Constraint, Value: ""}
	}
}
