package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/logging"
)

// GetID returns the authenticated user id placed in the context by the
// session middleware.
func GetID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// respondError maps the typed core errors onto HTTP replies. Unexpected
// errors are logged and become a generic 500, never a half-described one.
func respondError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var stock *apperr.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message":         "not enough stock available",
			"product_id":      stock.ProductID,
			"available_stock": stock.Available,
		})
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, apperr.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrEmptyCart),
		errors.Is(err, apperr.ErrDuplicateUsername),
		errors.Is(err, apperr.ErrDuplicateEmail),
		errors.Is(err, apperr.ErrInvalidOrExpiredToken):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	logging.FromContext(c.Request().Context()).Error("internal error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
