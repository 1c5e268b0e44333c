package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/repository"
)

// UserHandler bundles dependencies for user listing and lifecycle
// endpoints (admin list, profile update, soft delete).
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

type updateProfileReq struct {
	Name     *string `json:"name" form:"name"`
	AgeRange *string `json:"ageRange" form:"ageRange"`
	Address  *string `json:"address" form:"address"`
}

// List: paginated, filterable admin listing. Filters: createdFrom,
// createdTo (RFC3339 or YYYY-MM-DD), name and email (partial,
// case-insensitive), role, managerStatus. An empty page is a success
// with an empty data array, not an error.
func (h *UserHandler) List(c echo.Context) error {
	q := repository.UserListQuery{
		Name:          strings.TrimSpace(c.QueryParam("name")),
		Email:         strings.TrimSpace(c.QueryParam("email")),
		Role:          strings.TrimSpace(c.QueryParam("role")),
		ManagerStatus: strings.TrimSpace(c.QueryParam("managerStatus")),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 10),
	}
	if t, ok := parseDate(c.QueryParam("createdFrom")); ok {
		q.CreatedFrom = &t
	}
	if t, ok := parseDate(c.QueryParam("createdTo")); ok {
		q.CreatedTo = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	page, err := h.Users.List(ctx, q)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "query failed")
	}

	out := make([]model.PublicUser, 0, len(page.Users))
	for i := range page.Users {
		out = append(out, page.Users[i].Public())
	}
	if len(out) == 0 {
		// "No content" success outcome: statusCode marks the empty
		// page while the body still carries the envelope.
		return c.JSON(http.StatusOK, Envelope{
			Success: true, StatusCode: http.StatusNoContent,
			Message: "no users found", Data: out,
		})
	}
	return respondPage(c, http.StatusOK, "users fetched",
		out, NewPagination(q.Page, q.Limit, page.TotalItems, page.TotalPages))
}

// UpdateMe: partial profile update of the authenticated caller. Only
// supplied fields change; an optional multipart "image" replaces the
// profile picture.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, ok := c.Get("user_id").(uint64)
	if !ok || uid == 0 {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	upd := repository.ProfileUpdate{
		Name:     req.Name,
		AgeRange: req.AgeRange,
		Address:  req.Address,
	}
	if path, url, ok := storeUpload(h.Cfg, c, "image"); ok {
		upd.ImagePath = &path
		upd.ImageURL = &url
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, uid, upd); err != nil {
		return respondError(c, http.StatusInternalServerError, "update failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "profile updated", u.Public())
}

// Delete: soft-delete an account. Only the owner acting with the
// admin role may delete, and an already-deleted account cannot be
// deleted again.
func (h *UserHandler) Delete(c echo.Context) error {
	uid, ok := c.Get("user_id").(uint64)
	if !ok || uid == 0 {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	role, _ := c.Get("role").(string)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid user id")
	}
	if role != model.RoleAdmin || id != uid {
		return respondError(c, http.StatusForbidden, "forbidden")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SoftDelete(ctx, id); err != nil {
		return respondServiceError(c, err)
	}
	return respond(c, http.StatusOK, "account deleted", nil)
}

// queryInt reads an integer query parameter with a floor of 1.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// parseDate accepts RFC3339 timestamps or plain dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
