package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password_hash, github_id, avatar_url, created_at, updated_at`

// CreateUser inserts a new account with a generated xid.
// A taken email surfaces as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) (err error) {
	ctx, span := db.startSpan(ctx, "UserRepository.CreateUser", "INSERT")
	defer func() { endSpan(span, err) }()

	var githubID sql.NullInt64
	if user.GitHubID != nil {
		githubID = sql.NullInt64{Int64: *user.GitHubID, Valid: true}
	}

	now := timestamp()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx, db.dialect.rebind(
		`INSERT INTO "user" (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		githubID,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqldb: inserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (_ *model.User, err error) {
	ctx, span := db.startSpan(ctx, "UserRepository.GetUserByID", "SELECT")
	defer func() { endSpan(span, err) }()

	row := db.conn.QueryRowContext(ctx, db.dialect.rebind(
		`SELECT `+userColumns+` FROM "user" WHERE id = ?`), id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqldb: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks an account up by (case-insensitive) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (_ *model.User, err error) {
	ctx, span := db.startSpan(ctx, "UserRepository.GetUserByEmail", "SELECT")
	defer func() { endSpan(span, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.NotFound("user", email)
	}

	row := db.conn.QueryRowContext(ctx, db.dialect.rebind(
		`SELECT `+userColumns+` FROM "user" WHERE email = ?`), email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqldb: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHubUser creates or refreshes the account tied to user.GitHubID.
//
// An existing account keeps its internal ID; only the profile fields GitHub
// may have changed (name, email, avatar) are overwritten. On return the
// caller's struct is the canonical row.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) (err error) {
	ctx, span := db.startSpan(ctx, "UserRepository.UpsertGitHubUser", "UPSERT")
	defer func() { endSpan(span, err) }()

	if user.GitHubID == nil {
		return apperror.ValidationFailed("githubId", "GitHub ID is required")
	}

	var existingID string
	err = db.conn.QueryRowContext(ctx, db.dialect.rebind(
		`SELECT id FROM "user" WHERE github_id = ?`), *user.GitHubID,
	).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqldb: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existingID == "" {
		return db.CreateUser(ctx, user)
	}

	user.ID = existingID
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err = db.conn.ExecContext(ctx, db.dialect.rebind(
		`UPDATE "user" SET name = ?, email = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`),
		user.Name,
		user.Email,
		user.AvatarURL,
		timestamp(),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqldb: updating user %s: %w", user.ID, err)
	}

	fresh, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *fresh
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                    model.User
		githubID             sql.NullInt64
		createdAt, updatedAt nullTime
	)
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&githubID, &u.AvatarURL, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return &u, nil
}
