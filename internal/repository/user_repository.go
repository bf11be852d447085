package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/whosaidit/internal/model"
)

const userColumns = "id, username, email, password_hash, password_modified_at, created_at"

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user with an already hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, password_modified_at) VALUES (?,?,?,?)",
		username, normalizeEmail(email), passwordHash, microPrecision(time.Now()))
	if err != nil {
		if msg, ok := duplicateKey(err); ok {
			if strings.Contains(msg, "email") {
				return 0, ErrEmailExists
			}
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByUsername fetches a user by exact username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword stores a new hash and moves password_modified_at forward,
// which invalidates every refresh and reset token issued before it.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string, modifiedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_modified_at=? WHERE id=?",
		passwordHash, microPrecision(modifiedAt), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// UpdateEmail changes the account email.
func (r *UserRepo) UpdateEmail(ctx context.Context, id uint64, email string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET email=? WHERE id=?", normalizeEmail(email), id)
	if err != nil {
		if _, ok := duplicateKey(err); ok {
			return ErrEmailExists
		}
		return err
	}
	return expectOne(res)
}

// Delete removes the user; group chats and their children cascade in the schema.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.PasswordModifiedAt, &u.CreatedAt)
	return u, notFound(err)
}

// microPrecision matches DATETIME(6) and the iatUs token claim. MySQL would
// round extra digits up, which could place a change after a token minted
// in the same microsecond.
func microPrecision(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// expectOne maps "no row affected" to ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
