package http

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/delivery/http/dto"
	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/middleware"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer renders the embedded HTML pages
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the embedded templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// Render implements echo.Renderer
func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type WebHandler struct {
	accounts *usecase.AccountService
	admin    *usecase.AdminService
	bonds    *usecase.BondService
	auth     *middleware.Auth
	cookies  sessionCookies
	log      *logger.Logger
}

func NewWebHandler(
	accounts *usecase.AccountService,
	admin *usecase.AdminService,
	bonds *usecase.BondService,
	auth *middleware.Auth,
	secureCookie bool,
	log *logger.Logger,
) *WebHandler {
	return &WebHandler{
		accounts: accounts,
		admin:    admin,
		bonds:    bonds,
		auth:     auth,
		cookies:  sessionCookies{auth: auth, secure: secureCookie},
		log:      log,
	}
}

// GET / - Redirect to dashboard if logged in, else login
func (h *WebHandler) HandleIndex(c echo.Context) error {
	if h.auth.HasSession(c) {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return c.Redirect(http.StatusFound, "/login")
}

// GET /login - Render login page
func (h *WebHandler) HandleLogin(c echo.Context) error {
	if h.auth.HasSession(c) {
		return c.Redirect(http.StatusFound, "/dashboard")
	}

	return c.Render(http.StatusOK, "login", map[string]interface{}{
		"Error": c.QueryParam("error"),
	})
}

// POST /login - Handle login form submission
func (h *WebHandler) HandleLoginPost(c echo.Context) error {
	var req dto.LoginRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return loginError(c, "Username and password are required")
	}

	user, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			h.log.Error("login failed", logger.String("username", req.Username), logger.Error(err))
		}
		return loginError(c, "Invalid credentials")
	}

	if _, err := h.cookies.issue(c, user); err != nil {
		h.log.Error("failed to generate token", logger.String("username", user.Username), logger.Error(err))
		return loginError(c, "Failed to start session")
	}

	return c.Redirect(http.StatusFound, "/dashboard")
}

func loginError(c echo.Context, message string) error {
	return c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(message))
}

// GET /logout - Clear the session and any reset in progress
func (h *WebHandler) HandleLogout(c echo.Context) error {
	if err := h.accounts.ClearReset(c.Request().Context(), cookieValue(c, ResetCookie)); err != nil {
		h.log.Warn("failed to clear reset session", logger.Error(err))
	}
	h.cookies.clear(c, middleware.TokenCookie)
	h.cookies.clear(c, ResetCookie)
	return c.Redirect(http.StatusFound, "/login")
}

// GET /dashboard - Render dashboard
func (h *WebHandler) HandleDashboard(c echo.Context) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return loginError(c, "Authentication required")
	}
	role, _ := middleware.GetUserRole(c)

	return c.Render(http.StatusOK, "dashboard", map[string]interface{}{
		"Username": username,
		"IsAdmin":  role == domain.RoleAdmin,
		"Bonds":    h.bonds.ListBonds(c.Request().Context()),
	})
}

// GET /admin/users - Render user management page
func (h *WebHandler) HandleAdminUsers(c echo.Context) error {
	users, err := h.admin.ListUsers(c.Request().Context())
	if err != nil {
		h.log.Error("failed to list users", logger.Error(err))
		return c.String(http.StatusInternalServerError, "Failed to load users")
	}

	current, _ := middleware.GetUsername(c)
	return c.Render(http.StatusOK, "admin_users", map[string]interface{}{
		"Users":       dto.NewUserOutputs(users),
		"CurrentUser": current,
	})
}
