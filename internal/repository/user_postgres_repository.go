package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmaxbonds/internal/domain"
)

const uniqueViolation = "23505"

// UserPostgresRepository implements UserRepository on a postgres table
type UserPostgresRepository struct {
	db *pgxpool.Pool
}

// NewUserPostgresRepository creates a new UserPostgresRepository
func NewUserPostgresRepository(db *pgxpool.Pool) *UserPostgresRepository {
	return &UserPostgresRepository{db: db}
}

// Create creates a new user
func (r *UserPostgresRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, password, email, role)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query, user.Username, user.Password, user.Email, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("create %q: %w", user.Username, domain.ErrUserExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByUsername retrieves a user by username
func (r *UserPostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT username, password, email, role
		FROM users
		WHERE username = $1
	`

	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.Username,
		&user.Password,
		&user.Email,
		&user.Role,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get %q: %w", username, domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetAll retrieves all users
func (r *UserPostgresRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT username, password, email, role
		FROM users
		ORDER BY username ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(&user.Username, &user.Password, &user.Email, &user.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdatePassword replaces the stored password of a user
func (r *UserPostgresRepository) UpdatePassword(ctx context.Context, username, password string) error {
	query := `
		UPDATE users
		SET password = $1, updated_at = NOW()
		WHERE username = $2
	`

	tag, err := r.db.Exec(ctx, query, password, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update password of %q: %w", username, domain.ErrUserNotFound)
	}

	return nil
}

// Delete removes a user
func (r *UserPostgresRepository) Delete(ctx context.Context, username string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %q: %w", username, domain.ErrUserNotFound)
	}

	return nil
}
