package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/internal/domain/entity"
	"github.com/oksasatya/identity-core/internal/domain/repository"
)

const uniqueViolation = "23505"

// Constraint names from db/migrations/000001_create_users.up.sql.
var constraintFields = map[string]string{
	"users_email_key":    apperr.FieldEmail,
	"users_username_key": apperr.FieldUsername,
}

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type UserRepository struct {
	db querier
}

func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT id, email, username, password_hash, avatar, auth_method, status, created_at, updated_at
	FROM users
`

// Ping checks the pool when the underlying querier supports it.
func (r *UserRepository) Ping(ctx context.Context) error {
	if p, ok := r.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "find user by id", selectUser+`WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "find user by email", selectUser+`WHERE email = $1`, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, "find user by username", selectUser+`WHERE username = $1`, username)
}

func (r *UserRepository) findOne(ctx context.Context, op, query, arg string) (*entity.User, error) {
	u := &entity.User{}
	var authMethod, status string

	row := r.db.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.Avatar,
		&authMethod, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, apperr.Persistence(op, err)
	}
	u.AuthMethod = entity.AuthMethod(authMethod)
	u.Status = entity.Status(status)
	return u, nil
}

// Save upserts by id. The ON CONFLICT target is the primary key only, so the
// email and username constraints still reject duplicates.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, username, password_hash, avatar, auth_method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			password_hash = EXCLUDED.password_hash,
			avatar = EXCLUDED.avatar,
			auth_method = EXCLUDED.auth_method,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, u.ID, u.Email, u.Username, u.Password, u.Avatar, string(u.AuthMethod), string(u.Status), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return &apperr.ConflictError{Field: field}
		}
		return apperr.Persistence("save user", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, u *entity.User) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID); err != nil {
		return apperr.Persistence("delete user", err)
	}
	return nil
}

func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return "", false
	}
	if field, ok := constraintFields[pgErr.ConstraintName]; ok {
		return field, true
	}
	// Detail reads "Key (email)=(...) already exists."
	switch {
	case strings.Contains(pgErr.Detail, "(email)"):
		return apperr.FieldEmail, true
	case strings.Contains(pgErr.Detail, "(username)"):
		return apperr.FieldUsername, true
	default:
		return "", false
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)
