package domain

import "strings"

// User represents an account in the user store
type User struct {
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash; legacy entries may hold plaintext
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UserRole constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasHashedPassword reports whether the stored password is a bcrypt hash
func (u *User) HasHashedPassword() bool {
	return strings.HasPrefix(u.Password, "$2a$") ||
		strings.HasPrefix(u.Password, "$2b$") ||
		strings.HasPrefix(u.Password, "$2y$")
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
