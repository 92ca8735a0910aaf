package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/wood_market/internal/mykafka"
	"github.com/Skotchmaster/wood_market/internal/service/auth"
	"github.com/Skotchmaster/wood_market/internal/service/token"
	"github.com/Skotchmaster/wood_market/internal/store"
)

const resetGenericMessage = "If an account with that email exists, a password reset link has been sent."

type AuthHandler struct {
	Auth     *auth.Service
	Tokens   *token.Service
	Store    store.Store
	Producer *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// Register creates the account and logs the user straight in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req auth.Candidate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.Auth.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	if _, _, err := h.Tokens.IssueSession(c, user); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	})

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The identifier is tried as a username first, then as an email.
	user, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	access, refresh, err := h.Tokens.IssueSession(c, user)
	if err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"user":          user,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	refreshCookie, err := c.Cookie(token.RefreshCookie)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token missing")
	}

	if err := h.Tokens.RevokeRefresh(c, refreshCookie.Value); err != nil {
		return respondError(c, err)
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(token.NewCookie(token.AccessCookie, "", "/", expired))
	c.SetCookie(token.NewCookie(token.RefreshCookie, "", "/", expired))

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) CurrentUser(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return err
	}
	user, err := h.Store.GetUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ForgotPassword answers identically whether or not the email matches an
// account. The token is returned in the response body until mail delivery
// exists; it must never be logged.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	resetToken, err := h.Auth.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return respondError(c, err)
	}

	resp := echo.Map{"message": resetGenericMessage}
	if resetToken != "" {
		// TODO: deliver by email once an smtp collaborator exists.
		resp["reset_token"] = resetToken
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.Auth.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}
