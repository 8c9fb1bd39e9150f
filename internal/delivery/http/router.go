package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"cmaxbonds/internal/metrics"
	custommiddleware "cmaxbonds/internal/middleware"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Auth          *custommiddleware.Auth
	AuthHandler   *AuthHandler
	BondHandler   *BondHandler
	StreamHandler *StreamHandler
	AdminHandler  *AdminHandler
	WebHandler    *WebHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	auth := config.Auth

	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "cmax-bonds",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Pages
	e.GET("/", config.WebHandler.HandleIndex)
	e.GET("/login", config.WebHandler.HandleLogin)
	e.POST("/login", config.WebHandler.HandleLoginPost)
	e.GET("/logout", config.WebHandler.HandleLogout)
	e.GET("/dashboard", config.WebHandler.HandleDashboard, auth.PageAuthMiddleware)

	// Password reset (public, bound to the reset_session cookie)
	e.POST("/forgot-password", config.AuthHandler.ForgotPassword)
	e.POST("/verify-code", config.AuthHandler.VerifyCode)
	e.POST("/reset-password", config.AuthHandler.ResetPassword)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", config.AuthHandler.Login)
		authGroup.POST("/logout", config.AuthHandler.Logout)
	}

	bonds := api.Group("", auth.AuthMiddleware)
	{
		bonds.GET("/bonds", config.BondHandler.ListBonds)
		bonds.GET("/bond/:id", config.BondHandler.GetBond)
		bonds.GET("/realtime/:id", config.BondHandler.GetRealtime)
	}

	e.GET("/ws/realtime/:id", config.StreamHandler.Stream, auth.AuthMiddleware)

	adminPages := e.Group("/admin", auth.PageAuthMiddleware, auth.AdminMiddleware)
	{
		adminPages.GET("/users", config.WebHandler.HandleAdminUsers)
		adminPages.POST("/add-user", config.AdminHandler.AddUser)
		adminPages.GET("/delete-user/:username", config.AdminHandler.DeleteUserPage)
	}

	adminAPI := api.Group("/admin", auth.AuthMiddleware, auth.AdminMiddleware)
	{
		adminAPI.GET("/users", config.AdminHandler.ListUsers)
		adminAPI.DELETE("/users/:username", config.AdminHandler.DeleteUser)
	}
}

// ServerDeps are the services behind the HTTP app
type ServerDeps struct {
	Accounts       *usecase.AccountService
	Admin          *usecase.AdminService
	Bonds          *usecase.BondService
	Auth           *custommiddleware.Auth
	SecureCookie   bool
	ExposeCode     bool
	StreamInterval time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.Recorder
}

// NewServer builds the echo app with middleware, renderer and routes
func NewServer(deps ServerDeps) (*echo.Echo, error) {
	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger(deps.Logger, deps.Metrics, "/health"))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1M"))

	log := deps.Logger
	SetupRoutes(e, &RouterConfig{
		Auth:          deps.Auth,
		AuthHandler:   NewAuthHandler(deps.Accounts, deps.Auth, deps.SecureCookie, deps.ExposeCode, log),
		BondHandler:   NewBondHandler(deps.Bonds, log),
		StreamHandler: NewStreamHandler(deps.Bonds, deps.StreamInterval, log),
		AdminHandler:  NewAdminHandler(deps.Admin, log),
		WebHandler:    NewWebHandler(deps.Accounts, deps.Admin, deps.Bonds, deps.Auth, deps.SecureCookie, log),
	})

	return e, nil
}
