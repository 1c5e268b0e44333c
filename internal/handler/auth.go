package handler

import (
	"context"       // provides context with cancellation for DB calls
	"io"            // streaming uploaded files to disk
	"net/http"      // HTTP status codes and primitives
	"os"            // upload directory handling
	"path/filepath" // stored image paths
	"strings"       // string manipulation utilities
	"time"          // timeouts for DB calls

	"github.com/google/uuid"      // random names for stored images
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/middleware"
	"github.com/iliyamo/user-account-service/internal/service"
)

// AuthHandler bundles dependencies for the account endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *service.AccountService
}

func NewAuthHandler(cfg config.Config, accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	Name     string  `json:"name" form:"name"`
	Email    string  `json:"email" form:"email"`
	Password string  `json:"password" form:"password"`
	Phone    *string `json:"phone" form:"phone"`
	Role     string  `json:"role" form:"role"` // user | manager
	FCMToken *string `json:"fcmToken" form:"fcmToken"`

	// Manager applications only.
	BusinessAddress *string `json:"businessAddress" form:"businessAddress"`
	Website         *string `json:"website" form:"website"`
}
type loginReq struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FCMToken *string `json:"fcmToken"`
}
type verifyReq struct {
	Code string `json:"code"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	NewPassword string `json:"newPassword"`
}
type changeReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type tokenData struct {
	Token string `json:"token"`
}
type loginData struct {
	Role  string      `json:"role"`
	Token string      `json:"token"`
	User  interface{} `json:"user,omitempty"`
}

// Register: accept the registration, answer immediately with a token
// bound to the email, and leave user creation to the background phase.
// The optional "image" multipart file is stored before responding so
// the background task can record its path.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return respondError(c, http.StatusBadRequest, "name, email and password are required")
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != "manager" {
		role = "user"
	}

	in := service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Phone:           req.Phone,
		Role:            role,
		FCMToken:        req.FCMToken,
		BusinessAddress: req.BusinessAddress,
		Website:         req.Website,
	}
	if path, url, ok := storeUpload(h.Cfg, c, "image"); ok {
		in.ImagePath = &path
		in.ImageURL = &url
	}
	if _, url, ok := storeUpload(h.Cfg, c, "govIdImage"); ok {
		in.GovIDImageURL = &url
	}

	token, err := h.Accounts.Register(c.Request().Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusCreated, "verify your email with the code we sent", tokenData{Token: token})
}

// Login: authenticate and return a session token. Unverified accounts
// get a reduced 202 response carrying only role and token, and a
// fresh verification code is issued behind the response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondError(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Accounts.Login(ctx, req.Email, req.Password, req.FCMToken)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !res.Verified {
		return respond(c, http.StatusAccepted, "email not verified, a new code has been sent",
			loginData{Role: res.User.Role, Token: res.Token})
	}
	return respond(c, http.StatusOK, "login successful",
		loginData{Role: res.User.Role, Token: res.Token, User: res.User.Public()})
}

// VerifyOTP: check a submitted code against the stored record for the
// bearer token's email. Wrong and expired codes are one opaque error.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	claims, err := middleware.BearerClaims(h.Cfg.JWTSecret, c)
	if err != nil {
		return respondServiceError(c, err)
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return respondError(c, http.StatusBadRequest, "code is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	token, err := h.Accounts.VerifyOTP(ctx, claims, strings.TrimSpace(req.Code))
	if err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "email verified", tokenData{Token: token})
}

// ResendOTP: issue a fresh code unless the previous one is still
// inside its window. Requires the registration (or session) token.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	claims, err := middleware.BearerClaims(h.Cfg.JWTSecret, c)
	if err != nil {
		return respondServiceError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.ResendOTP(ctx, claims.Email); err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "a new code has been sent", nil)
}

// ForgotPassword: start a reset flow for an existing account.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return respondError(c, http.StatusBadRequest, "email is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	token, err := h.Accounts.ForgotPassword(ctx, req.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "a reset code has been sent to your email", tokenData{Token: token})
}

// ResetPassword: accept a new password for the bearer token's account.
// The token must carry a role claim; the raw registration token is
// rejected. Success is reported before the hash is persisted.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	claims, err := middleware.BearerClaims(h.Cfg.JWTSecret, c)
	if err != nil {
		return respondServiceError(c, err)
	}
	var req resetReq
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return respondError(c, http.StatusBadRequest, "newPassword is required")
	}

	if err := h.Accounts.ResetPassword(claims, req.NewPassword); err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "password has been reset", nil)
}

// ChangePassword: authenticated password change; the old password is
// verified against the stored hash before the new one is accepted.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, ok := c.Get("user_id").(uint64)
	if !ok || uid == 0 {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req changeReq
	if err := c.Bind(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		return respondError(c, http.StatusBadRequest, "oldPassword and newPassword are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, uid, req.OldPassword, req.NewPassword); err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "password changed", nil)
}

// storeUpload saves an optional multipart file under the upload
// directory with a random name and returns its path and public URL.
// Missing files and storage failures simply skip the image; an
// avatar must never fail a registration.
func storeUpload(cfg config.Config, c echo.Context, field string) (path, url string, ok bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", "", false
	}
	src, err := fh.Open()
	if err != nil {
		return "", "", false
	}
	defer src.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return "", "", false
	}
	name := uuid.NewString() + filepath.Ext(fh.Filename)
	path = filepath.Join(cfg.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", false
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", "", false
	}
	return path, cfg.PublicBaseURL + "/" + cfg.UploadDir + "/" + name, true
}
