package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/middleware"
)

// ResetCookie holds the id of the caller's password reset session
const ResetCookie = "reset_session"

// sessionCookies issues and clears the cookies of a browser session
type sessionCookies struct {
	auth   *middleware.Auth
	secure bool
}

// issue signs a token for user and stores it in the session cookie
func (s sessionCookies) issue(c echo.Context, user *domain.User) (string, error) {
	token, err := s.auth.GenerateJWT(user.Username, user.Role)
	if err != nil {
		return "", err
	}
	s.set(c, middleware.TokenCookie, token, s.auth.TTL())
	return token, nil
}

func (s sessionCookies) set(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (s sessionCookies) clear(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
