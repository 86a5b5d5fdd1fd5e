package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/canteen-service/internal/domain"
)

// UserRepository encapsulates application user persistence.
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.AppUser) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Upsert inserts the user keyed by the external user id, or refreshes
// name, avatar and last-login when the row already exists.
func (r *userRepository) Upsert(ctx context.Context, user *domain.AppUser) error {
	const query = `
        INSERT INTO app_users (userid, username, avatar, company_id, last_login)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (userid) DO UPDATE
            SET username = EXCLUDED.username,
                avatar = EXCLUDED.avatar,
                last_login = NOW()
        RETURNING id, last_login`
	return r.pool.QueryRow(ctx, query,
		user.UserID,
		user.Username,
		user.Avatar,
		user.CompanyID,
	).Scan(&user.ID, &user.LastLogin)
}
