package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/handler"
	"github.com/iliyamo/user-account-service/internal/middleware"
	"github.com/iliyamo/user-account-service/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account endpoints.  Unauthenticated and
// token-gated operations live under /v1/auth behind the rate limiter;
// session-protected endpoints live under /v1 behind the JWT
// middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, cfg config.Config, rdb *redis.Client) {
	// The auth group carries the flows that run before a session
	// exists.  verify-otp, resend-otp and reset-password read their
	// bearer token inside the handler because they accept the
	// short-lived email token, which the JWT middleware rejects.
	g := e.Group("/v1/auth")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/resend-otp", a.ResendOTP)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	// Session-protected endpoints.  JWTAuth validates the bearer
	// session token and stores user_id/email/role in the context.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.POST("/auth/change-password", a.ChangePassword,
		middleware.RequireRole(model.RoleUser, model.RoleManager, model.RoleAdmin))
	auth.PATCH("/users/me", u.UpdateMe,
		middleware.RequireRole(model.RoleUser, model.RoleManager, model.RoleAdmin))

	// Admin-only surface: the paginated listing and the soft delete.
	auth.GET("/users", u.List, middleware.RequireRole(model.RoleAdmin))
	auth.DELETE("/users/:id", u.Delete, middleware.RequireRole(model.RoleAdmin))
}
