package http

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/delivery/http/dto"
	"cmaxbonds/internal/middleware"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

// AuthHandler handles login and the password reset flow
type AuthHandler struct {
	accounts   *usecase.AccountService
	cookies    sessionCookies
	exposeCode bool
	log        *logger.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	accounts *usecase.AccountService,
	auth *middleware.Auth,
	secureCookie bool,
	exposeCode bool,
	log *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		cookies:    sessionCookies{auth: auth, secure: secureCookie},
		exposeCode: exposeCode,
		log:        log,
	}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, "Invalid request payload", errs)
	}

	user, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}

	token, err := h.cookies.issue(c, user)
	if err != nil {
		h.log.Error("failed to generate token", logger.String("username", user.Username), logger.Error(err))
		return InternalServerErrorResponse(c, "Failed to generate token")
	}

	h.log.Info("user logged in", logger.String("username", user.Username))
	return SuccessResponse(c, dto.LoginResponse{
		Token: token,
		User:  dto.NewUserOutput(user),
	})
}

// Logout handles user logout
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	h.cookies.clear(c, middleware.TokenCookie)
	return SuccessMessageResponse(c, "Logged out", nil)
}

// ForgotPassword issues a verification code and binds the reset session to the caller
// POST /forgot-password
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req dto.ForgotPasswordRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, "Invalid request payload", errs)
	}

	ctx := c.Request().Context()
	// a new request supersedes any reset already in progress
	if err := h.accounts.ClearReset(ctx, cookieValue(c, ResetCookie)); err != nil {
		h.log.Warn("failed to clear previous reset session", logger.Error(err))
	}

	session, err := h.accounts.RequestReset(ctx, req.Username)
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}

	h.cookies.set(c, ResetCookie, session.ID, time.Until(session.ExpiresAt))

	message := "Verification code sent by email"
	if h.exposeCode {
		message = fmt.Sprintf("Test code: %s (sent by email in production)", session.Code)
	}
	return SuccessMessageResponse(c, message, nil)
}

// VerifyCode checks the code of the caller's reset session
// POST /verify-code
func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req dto.VerifyCodeRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, "Invalid request payload", errs)
	}

	if err := h.accounts.VerifyCode(c.Request().Context(), cookieValue(c, ResetCookie), req.Code); err != nil {
		return DomainErrorResponse(c, h.log, err)
	}
	return SuccessMessageResponse(c, "Code verified", nil)
}

// ResetPassword sets the new password once the code was verified
// POST /reset-password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req dto.ResetPasswordRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, "Invalid request payload", errs)
	}

	err := h.accounts.ResetPassword(c.Request().Context(), cookieValue(c, ResetCookie), req.NewPassword)
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}

	h.cookies.clear(c, ResetCookie)
	return SuccessMessageResponse(c, "Password updated successfully", nil)
}
