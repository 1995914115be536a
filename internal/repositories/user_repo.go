package repositories

import (
	"context"

	"github.com/hachizeus/anzia-auth/internal/database"
	"github.com/hachizeus/anzia-auth/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password_hash, name, role, created_at, updated_at
	`

	created := &models.User{}
	err := r.db.Pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
	).Scan(
		&created.ID,
		&created.Email,
		&created.PasswordHash,
		&created.Name,
		&created.Role,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return created, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, name, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(ctx, query, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, name, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(ctx, query, id)
}

// UpdateName changes the only user-editable profile field.
func (r *UserRepository) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, email, password_hash, name, role, created_at, updated_at
	`

	return r.scanUser(ctx, query, id, name)
}

func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return user, nil
}
