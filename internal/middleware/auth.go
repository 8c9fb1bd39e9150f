package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/domain"
)

// TokenCookie is the name of the session cookie
const TokenCookie = "token"

// Context keys set by the auth middlewares
const (
	ContextUsername = "username"
	ContextRole     = "role"
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and checks session tokens
type Auth struct {
	secret []byte
	ttl    time.Duration
	users  domain.UserRepository
}

// NewAuth creates a new Auth; users is consulted for admin checks
func NewAuth(secret string, ttl time.Duration, users domain.UserRepository) *Auth {
	return &Auth{secret: []byte(secret), ttl: ttl, users: users}
}

// TTL returns the lifetime of issued tokens
func (a *Auth) TTL() time.Duration {
	return a.ttl
}

// GenerateJWT generates a new JWT token for a user
func (a *Auth) GenerateJWT(username, role string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseJWT validates a token and returns its claims
func (a *Auth) ParseJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// HasSession reports whether the request carries a valid session token
func (a *Auth) HasSession(c echo.Context) bool {
	_, err := a.authenticate(c)
	return err == nil
}

// AuthMiddleware validates the session token and sets the user context.
// API routes get a 401 on failure.
func (a *Auth) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := a.authenticate(c); err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return next(c)
	}
}

// PageAuthMiddleware is AuthMiddleware for HTML pages: failures redirect to the login page
func (a *Auth) PageAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := a.authenticate(c); err != nil {
			return c.Redirect(http.StatusFound, "/login")
		}
		return next(c)
	}
}

// AdminMiddleware checks that the authenticated user currently holds the admin role.
// The role is read from the user store so demotions apply to live sessions.
func (a *Auth) AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		username, err := GetUsername(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "User not found in context")
		}

		user, err := a.users.GetByUsername(c.Request().Context(), username)
		if err != nil || !user.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}

		c.Set(ContextRole, user.Role)
		return next(c)
	}
}

func (a *Auth) authenticate(c echo.Context) (*JWTClaims, error) {
	tokenString, err := tokenFromRequest(c)
	if err != nil {
		return nil, err
	}

	claims, err := a.ParseJWT(tokenString)
	if err != nil {
		return nil, errors.New("Invalid or expired token")
	}

	c.Set(ContextUsername, claims.Username)
	c.Set(ContextRole, claims.Role)
	return claims, nil
}

func tokenFromRequest(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		cookie, err := c.Cookie(TokenCookie)
		if err != nil || cookie.Value == "" {
			return "", errors.New("Missing authentication token")
		}
		return cookie.Value, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

// GetUsername extracts the username from echo context
func GetUsername(c echo.Context) (string, error) {
	username, ok := c.Get(ContextUsername).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// GetUserRole extracts user role from echo context
func GetUserRole(c echo.Context) (string, error) {
	role, ok := c.Get(ContextRole).(string)
	if !ok {
		return "", fmt.Errorf("role not found in context")
	}
	return role, nil
}
