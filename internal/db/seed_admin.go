package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/pressroom/internal/config"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser creates the bootstrap APP_ADMIN from env config.
// Idempotent: an existing row with the same email is left alone.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(cfg.AdminEmail)

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	roles, err := identity.DefaultRoles().AssignCanonical(identity.RoleAppAdmin)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), cfg.AdminName, email, hash, []string(roles), now, now,
	)

	return err
}
