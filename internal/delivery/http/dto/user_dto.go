package dto

import "cmaxbonds/internal/domain"

// UserOutput represents user details in API responses
type UserOutput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// NewUserOutput strips the password from u
func NewUserOutput(u *domain.User) *UserOutput {
	return &UserOutput{
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// NewUserOutputs converts a user list
func NewUserOutputs(users []*domain.User) []*UserOutput {
	out := make([]*UserOutput, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserOutput(u))
	}
	return out
}

// AddUserRequest is the admin add-user form
type AddUserRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Role     string `json:"role" form:"role" default:"user" validate:"oneof=admin user"`
}
