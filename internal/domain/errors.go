package domain

import "errors"

var (
	ErrBondNotFound       = errors.New("bond not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCannotDeleteUser   = errors.New("cannot delete user")
	ErrInvalidRole        = errors.New("invalid role")

	ErrResetNotFound     = errors.New("reset session not found")
	ErrCodeExpired       = errors.New("code expired")
	ErrCodeIncorrect     = errors.New("incorrect code")
	ErrNotVerified       = errors.New("verification required")
	ErrPasswordNotUpdate = errors.New("error updating password")
)
