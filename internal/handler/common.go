// Package handler exposes the HTTP surface. Handlers bind and
// validate input, call the service or repository layer with a
// bounded context, and translate domain errors to status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ksrnb/reunion-ticketing/internal/repository"
	"github.com/ksrnb/reunion-ticketing/internal/service"
)

// dbTimeout bounds every operation a handler performs against
// storage and downstream services.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentUserID reads the authenticated user id stored by the JWT
// middleware. Zero means the route was mounted without it, which
// is a wiring bug, not a client error.
func currentUserID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}

func currentIsAdmin(c echo.Context) bool {
	isAdmin, _ := c.Get("is_admin").(bool)
	return isAdmin
}

// pathID parses the numeric :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// fail maps domain errors onto HTTP responses. Unknown errors
// become opaque 500s; the cause is left to the server log.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrEventNotConfigured):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not configured"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrAlreadyUpgraded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotPaid),
		errors.Is(err, service.ErrReceiptMissing):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotifierMissing):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "email delivery not configured"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
