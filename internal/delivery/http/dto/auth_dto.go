package dto

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string      `json:"token"`
	User  *UserOutput `json:"user"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
}

// VerifyCodeRequest carries the emailed verification code
type VerifyCodeRequest struct {
	Code string `json:"code" form:"code" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest sets the new password of a verified reset session
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=6"`
}
