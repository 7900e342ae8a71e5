package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmailAlreadyUsed = errors.New("email already in use")

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string, roles identity.RoleSet) (identity.Identity, error) {
	now := time.Now().UTC()

	u := identity.Identity{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Roles:        roles.Normalize(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, roles, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Name, u.Email, u.PasswordHash, []string(u.Roles), u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.Identity{}, ErrEmailAlreadyUsed
		}

		return identity.Identity{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (identity.Identity, error) {
	return r.getWhere(ctx, "users.get_by_email", `email = $1`, strings.ToLower(email))
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (identity.Identity, error) {
	return r.getWhere(ctx, "users.get_by_id", `id = $1`, id)
}

func (r *UsersRepo) getWhere(ctx context.Context, op, cond string, arg any) (identity.Identity, error) {
	var u identity.Identity
	var roles []string

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, roles, created_at, updated_at
			FROM users
			WHERE `+cond,
			arg,
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Identity{}, identity.ErrNotFound
		}

		return identity.Identity{}, err
	}

	u.Roles = identity.RoleSet(roles).Normalize()

	return u, nil
}

// List pages the admin directory, newest signups first. Password hashes stay
// out of the JSON envelope via the domain struct tag.
func (r *UsersRepo) List(ctx context.Context, limit, offset int) ([]identity.Identity, error) {
	var out []identity.Identity

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, name, email, roles, created_at, updated_at
			FROM users
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2`,
			limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]identity.Identity, 0, limit)

		for rows.Next() {
			var u identity.Identity
			var roles []string

			err = rows.Scan(&u.ID, &u.Name, &u.Email, &roles, &u.CreatedAt, &u.UpdatedAt)

			if err != nil {
				return err
			}

			u.Roles = identity.RoleSet(roles).Normalize()
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var total int

	err := r.observe("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *UsersRepo) UpdateRoles(ctx context.Context, id string, roles identity.RoleSet) (identity.Identity, error) {
	var u identity.Identity
	var got []string

	err := r.observe("users.update_roles", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE users
			SET roles = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING id, name, email, roles, created_at, updated_at`,
			id, []string(roles),
		).Scan(&u.ID, &u.Name, &u.Email, &got, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Identity{}, identity.ErrNotFound
		}

		return identity.Identity{}, err
	}

	u.Roles = identity.RoleSet(got)

	return u, nil
}
