package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-account-service/internal/repository"
	"github.com/iliyamo/user-account-service/internal/service"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// Envelope is the uniform response body of every endpoint:
// {success, statusCode, message, data, pagination?}.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a list response. NextPage and
// PrevPage are present-or-absent rather than sentinel values.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
	NextPage   *int  `json:"nextPage,omitempty"`
	PrevPage   *int  `json:"prevPage,omitempty"`
}

// NewPagination fills the derived page fields from the raw counts.
func NewPagination(page, limit int, totalItems int64, totalPages int) *Pagination {
	p := &Pagination{Page: page, Limit: limit, TotalItems: totalItems, TotalPages: totalPages}
	if page < totalPages {
		next := page + 1
		p.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, StatusCode: status, Message: message, Data: data})
}

func respondPage(c echo.Context, status int, message string, data interface{}, pg *Pagination) error {
	return c.JSON(status, Envelope{Success: true, StatusCode: status, Message: message, Data: data, Pagination: pg})
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, StatusCode: status, Message: message})
}

// respondServiceError maps domain sentinels onto the error envelope.
// Anything unrecognized is rewrapped as a generic 500 so internals
// never leak to the client.
func respondServiceError(c echo.Context, err error) error {
	if ce, ok := repository.AsCooldown(err); ok {
		return respondError(c, http.StatusForbidden, ce.Error())
	}
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return respondError(c, http.StatusConflict, "email already exists")
	case errors.Is(err, repository.ErrNotFound):
		return respondError(c, http.StatusNotFound, "account not found")
	case errors.Is(err, repository.ErrAlreadyDeleted):
		return respondError(c, http.StatusForbidden, "account already deleted")
	case errors.Is(err, repository.ErrForbidden):
		return respondError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidCredentials):
		return respondError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrOTPInvalid):
		return respondError(c, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, utils.ErrInvalidToken):
		return respondError(c, http.StatusUnauthorized, "invalid token")
	default:
		return respondError(c, http.StatusInternalServerError, "something went wrong")
	}
}
