package usecase

import (
	"context"
	"fmt"

	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/metrics"
	"cmaxbonds/pkg/logger"
)

// NewUserInput carries the fields of a user created by an admin
type NewUserInput struct {
	Username string
	Password string
	Email    string
	Role     string
}

// AdminService implements user management for admins
type AdminService struct {
	users   domain.UserRepository
	log     *logger.Logger
	metrics *metrics.Recorder
}

// NewAdminService creates a new AdminService
func NewAdminService(users domain.UserRepository, log *logger.Logger, rec *metrics.Recorder) *AdminService {
	return &AdminService{users: users, log: log, metrics: rec}
}

// ListUsers returns every user ordered by username
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.GetAll(ctx)
}

// AddUser creates a user; the role defaults to user
func (s *AdminService) AddUser(ctx context.Context, actor string, in NewUserInput) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !domain.ValidRole(in.Role) {
		s.metrics.AdminAction("add", false)
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Username: in.Username, Password: hash, Email: in.Email, Role: in.Role}
	if err := s.users.Create(ctx, user); err != nil {
		s.metrics.AdminAction("add", false)
		return nil, err
	}

	s.log.Info("user added",
		logger.String("actor", actor),
		logger.String("username", user.Username),
		logger.String("role", user.Role),
	)
	s.metrics.AdminAction("add", true)
	return user, nil
}

// DeleteUser removes username; admins cannot delete themselves
func (s *AdminService) DeleteUser(ctx context.Context, actor, username string) error {
	if username == actor {
		s.metrics.AdminAction("delete", false)
		return fmt.Errorf("%w: cannot delete the current session user", domain.ErrCannotDeleteUser)
	}

	if err := s.users.Delete(ctx, username); err != nil {
		s.metrics.AdminAction("delete", false)
		return fmt.Errorf("%w: %w", domain.ErrCannotDeleteUser, err)
	}

	s.log.Info("user deleted", logger.String("actor", actor), logger.String("username", username))
	s.metrics.AdminAction("delete", true)
	return nil
}
