package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/user-account-service/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer session
// token and injects its claims into the request context. Handlers on
// protected routes read the identity via `c.Get("user_id")`,
// `c.Get("email")` and `c.Get("role")`. Tokens without a role claim
// (the short-lived registration/reset tokens) are rejected here;
// endpoints that accept those parse the header themselves.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            if !claims.Session() {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session token required"})
            }

            c.Set("user_id", claims.UserID)
            c.Set("email", claims.Email)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}

// BearerClaims extracts and verifies the bearer token of a request
// without enforcing the session shape. Used by the OTP and reset
// endpoints, which accept the email-only registration token.
func BearerClaims(secret string, c echo.Context) (utils.Claims, error) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return utils.Claims{}, utils.ErrInvalidToken
    }
    return utils.ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
}
