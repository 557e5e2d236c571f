package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cleanhub/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicatePhone = errors.New("phone already registered")
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, phone, password_hash, role, profile_image, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, phone, password_hash, role, profile_image, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7
		)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.ProfileImage,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicatePhone
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

// FindByName returns the oldest account with exactly this name. Names are not
// unique, so callers must not treat the result as the only match.
func (r *UserRepository) FindByName(ctx context.Context, name string) (models.User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = $1 ORDER BY created_at ASC, id ASC LIMIT 1`,
		name,
	)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) UpdateName(ctx context.Context, id string, name string) (models.User, error) {
	return r.findOne(ctx, `
		UPDATE users SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, name,
	)
}

func (r *UserRepository) UpdateProfileImage(ctx context.Context, id string, url string) (models.User, error) {
	return r.findOne(ctx, `
		UPDATE users SET profile_image = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, url,
	)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (models.User, error) {
	var user models.User
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.ProfileImage,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
