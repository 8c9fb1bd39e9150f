package domain

import "context"

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create adds a new user; ErrUserExists when the username is taken
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetAll retrieves all users ordered by username
	GetAll(ctx context.Context) ([]*User, error)

	// UpdatePassword replaces the stored password of a user
	UpdatePassword(ctx context.Context, username, password string) error

	// Delete removes a user
	Delete(ctx context.Context, username string) error
}

// ResetSessionStore keeps password reset sessions
type ResetSessionStore interface {
	Save(ctx context.Context, session *ResetSession) error
	Get(ctx context.Context, id string) (*ResetSession, error)
	Delete(ctx context.Context, id string) error

	// PurgeExpired drops sessions that expired before now and reports how many
	PurgeExpired(ctx context.Context) (int, error)
}
