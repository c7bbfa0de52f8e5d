package repository

import (
	"context"
	"time"

	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const userColumns = `id, platform, platform_user_id, name, avatar_url, email, password_hash, role, created_at, updated_at`

// UserRepository manages persistence for platform identities.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByPlatformID resolves a user by (platform, platform user id).
func (r *UserRepository) FindByPlatformID(ctx context.Context, platform, platformUserID string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE platform = $1 AND platform_user_id = $2", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, platform, platformUserID); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail resolves a web-platform user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or refreshes the profile fields on repeat logins.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO users (id, platform, platform_user_id, name, avatar_url, email, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (platform, platform_user_id)
DO UPDATE SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url, updated_at = EXCLUDED.updated_at
RETURNING %s`, userColumns)

	var stored models.User
	if err := r.db.GetContext(ctx, &stored, query,
		user.ID, user.Platform, user.PlatformUserID, user.Name, user.AvatarURL,
		user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &stored, nil
}
