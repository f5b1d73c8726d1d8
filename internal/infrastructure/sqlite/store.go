// Package sqlite implements the user directory over an embedded SQLite file.
//
// Email and username carry their own UNIQUE indexes so duplicates are rejected
// by the database itself, whatever the callers pre-checked.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/internal/domain/entity"
	"github.com/oksasatya/identity-core/internal/domain/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL,
	username    TEXT NOT NULL,
	password    TEXT NOT NULL DEFAULT '',
	avatar      TEXT,
	auth_method TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username);
`

const userColumns = `id, email, username, password, avatar, auth_method, status, created_at, updated_at`

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Store is a UserRepository backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer; one connection keeps writes serialized in
	// the pool instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return s.findOne(ctx, "find user by id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.findOne(ctx, "find user by email", `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.findOne(ctx, "find user by username", `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Store) findOne(ctx context.Context, op, query string, arg string) (*entity.User, error) {
	var (
		u          entity.User
		avatar     sql.NullString
		authMethod string
		status     string
		createdAt  int64
		updatedAt  int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.Password, &avatar, &authMethod, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, apperr.Persistence(op, err)
	}
	if avatar.Valid {
		a := avatar.String
		u.Avatar = &a
	}
	u.AuthMethod = entity.AuthMethod(authMethod)
	u.Status = entity.Status(status)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

// Save upserts by id. A clash on email or username is not covered by the
// ON CONFLICT clause and surfaces as a ConflictError.
func (s *Store) Save(ctx context.Context, u *entity.User) error {
	var avatar sql.NullString
	if u.Avatar != nil {
		avatar = sql.NullString{String: *u.Avatar, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			password = excluded.password,
			avatar = excluded.avatar,
			auth_method = excluded.auth_method,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, u.ID, u.Email, u.Username, u.Password, avatar, string(u.AuthMethod), string(u.Status),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return &apperr.ConflictError{Field: field}
		}
		return apperr.Persistence("save user", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, u *entity.User) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, u.ID); err != nil {
		return apperr.Persistence("delete user", err)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

// uniqueViolationField maps "UNIQUE constraint failed: users.<col>" to a field.
func uniqueViolationField(err error) (string, bool) {
	if !isConstraintError(err) {
		return "", false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "users.email"):
		return apperr.FieldEmail, true
	case strings.Contains(msg, "users.username"):
		return apperr.FieldUsername, true
	default:
		return "", false
	}
}

var _ repository.UserRepository = (*Store)(nil)
