package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/store"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour

	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type Service struct {
	Store         store.Store
	JWTSecret     []byte
	RefreshSecret []byte
}

func NewCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// IssueSession signs an access token and a persisted refresh token for the
// user and sets both cookies.
func (t *Service) IssueSession(c echo.Context, user *models.User) (string, string, error) {
	access, err := SignAccessToken(user.ID, user.Role, t.JWTSecret)
	if err != nil {
		return "", "", err
	}
	refresh, err := SignRefreshToken(user.ID, user.Role, t.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	if err := SaveRefreshToken(c.Request().Context(), t.Store, refresh, user.ID, user.Role); err != nil {
		return "", "", err
	}

	c.SetCookie(NewCookie(AccessCookie, access, "/", time.Now().Add(AccessTTL)))
	c.SetCookie(NewCookie(RefreshCookie, refresh, "/", time.Now().Add(RefreshTTL)))
	return access, refresh, nil
}

func (t *Service) RotateToken(c echo.Context, rawToken string) (string, string, error) {
	claims, err := ValidateRefresh(c.Request().Context(), rawToken, t.RefreshSecret, t.Store)
	if err != nil {
		return "", "", err
	}

	userID := uint(claims["sub"].(float64))
	role, _ := claims["role"].(string)

	newAccess, err := SignAccessToken(userID, role, t.JWTSecret)
	if err != nil {
		return "", "", err
	}
	newRefresh, err := SignRefreshToken(userID, role, t.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	if err := t.Store.RevokeRefreshToken(c.Request().Context(), rawToken); err != nil {
		return "", "", err
	}
	if err := SaveRefreshToken(c.Request().Context(), t.Store, newRefresh, userID, role); err != nil {
		return "", "", err
	}
	return newAccess, newRefresh, nil
}

func (t *Service) RevokeRefresh(c echo.Context, rawToken string) error {
	return t.Store.RevokeRefreshToken(c.Request().Context(), rawToken)
}

// AutoRefreshMiddleware authenticates the request from the access cookie and
// transparently rotates an expired access token using the refresh cookie.
func (t *Service) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if asCookie, err := c.Cookie(AccessCookie); err == nil {
			token, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
				return t.JWTSecret, nil
			})
			if err == nil && token.Valid {
				setUserContext(c, token.Claims.(jwt.MapClaims))
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
		}

		rfCookie, err := c.Cookie(RefreshCookie)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		newAccess, newRefresh, err := t.RotateToken(c, rfCookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
		}

		c.SetCookie(NewCookie(AccessCookie, newAccess, "/", time.Now().Add(AccessTTL)))
		c.SetCookie(NewCookie(RefreshCookie, newRefresh, "/", time.Now().Add(RefreshTTL)))

		token, _ := jwt.Parse(newAccess, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil })
		setUserContext(c, token.Claims.(jwt.MapClaims))
		return next(c)
	}
}

// AutoRefreshMiddlewareSupplier additionally requires the supplier role.
func (t *Service) AutoRefreshMiddlewareSupplier(next echo.HandlerFunc) echo.HandlerFunc {
	return t.AutoRefreshMiddleware(func(c echo.Context) error {
		if role, ok := c.Get("role").(string); !ok || role != models.RoleSupplier {
			return echo.NewHTTPError(http.StatusForbidden, "access denied. required role: supplier")
		}
		return next(c)
	})
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	if role, ok := claims["role"].(string); ok {
		c.Set("role", role)
	}
}
