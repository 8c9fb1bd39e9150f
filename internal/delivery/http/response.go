package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/domain"
	"cmaxbonds/pkg/logger"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Error:   err,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string, err interface{}) error {
	return ErrorResponse(c, http.StatusBadRequest, message, err)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusInternalServerError, message, nil)
}

// domainStatuses maps domain errors to HTTP status codes. Order matters:
// ErrCannotDeleteUser wraps ErrUserNotFound for unknown targets.
var domainStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrCannotDeleteUser, http.StatusBadRequest},
	{domain.ErrBondNotFound, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrUserExists, http.StatusConflict},
	{domain.ErrInvalidRole, http.StatusBadRequest},
	{domain.ErrCodeExpired, http.StatusBadRequest},
	{domain.ErrCodeIncorrect, http.StatusBadRequest},
	{domain.ErrNotVerified, http.StatusBadRequest},
	{domain.ErrPasswordNotUpdate, http.StatusBadRequest},
}

// matchDomainError returns the domain error err wraps and its status
func matchDomainError(err error) (error, int) {
	for _, ds := range domainStatuses {
		if errors.Is(err, ds.err) {
			return ds.err, ds.status
		}
	}
	return nil, http.StatusInternalServerError
}

// DomainErrorResponse renders the domain error err wraps with its status.
// Clients only see the domain error's text; the full chain is logged.
// Unmapped errors are hidden behind a generic message.
func DomainErrorResponse(c echo.Context, log *logger.Logger, err error) error {
	sentinel, status := matchDomainError(err)
	if sentinel == nil {
		log.Error("request failed",
			logger.String("path", c.Path()),
			logger.Error(err),
		)
		return InternalServerErrorResponse(c, "Internal server error")
	}

	log.Debug("request rejected",
		logger.String("path", c.Path()),
		logger.Int("status", status),
		logger.Error(err),
	)
	return ErrorResponse(c, status, sentinel.Error(), nil)
}

// NewHTTPErrorHandler renders errors that escape handlers, such as
// middleware rejections and unknown routes, in the response envelope.
func NewHTTPErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			message = fmt.Sprintf("%v", he.Message)
		} else {
			log.Error("unhandled error", logger.String("path", c.Request().URL.Path), logger.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = ErrorResponse(c, status, message, nil)
		}
		if writeErr != nil {
			log.Error("failed to write error response", logger.Error(writeErr))
		}
	}
}
