package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/service/token"
)

func TestRegisterHandler(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"username":  "test_user",
		"email":     "test@example.com",
		"password":  "password1",
		"full_name": "Test User",
		"role":      models.RoleCustomer,
	}
	c, rec := env.request(t, http.MethodPost, "/api/v1/register", payload, 0)
	require.NoError(t, env.auth.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "test_user", body["username"])
	require.Equal(t, models.RoleCustomer, body["role"])
	require.NotEmpty(t, body["id"])
	// The password hash never leaves the server.
	require.NotContains(t, rec.Body.String(), "password")

	// Registration starts a session.
	cookies := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck.Value != ""
	}
	require.True(t, cookies[token.AccessCookie])
	require.True(t, cookies[token.RefreshCookie])

	// Same username again.
	c, _ = env.request(t, http.MethodPost, "/api/v1/register", payload, 0)
	requireHTTPError(t, env.auth.Register(c), http.StatusBadRequest)
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "test_user", "test@example.com", models.RoleCustomer)

	// The username field doubles as the email identifier.
	for _, identifier := range []string{"test_user", "test@example.com"} {
		c, rec := env.request(t, http.MethodPost, "/api/v1/login", map[string]string{
			"username": identifier,
			"password": "password1",
		}, 0)
		require.NoError(t, env.auth.Login(c))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.NotEmpty(t, body["access_token"])
		require.NotEmpty(t, body["refresh_token"])
	}

	c, _ := env.request(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "test_user",
		"password": "wrong",
	}, 0)
	requireHTTPError(t, env.auth.Login(c), http.StatusUnauthorized)

	c, _ = env.request(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "nobody",
		"password": "password1",
	}, 0)
	requireHTTPError(t, env.auth.Login(c), http.StatusUnauthorized)
}

func TestLogOutHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "test_user", "test@example.com", models.RoleCustomer)

	c, rec := env.request(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "test_user",
		"password": "password1",
	}, 0)
	require.NoError(t, env.auth.Login(c))
	refresh := decodeBody(t, rec)["refresh_token"].(string)

	c, rec = env.request(t, http.MethodPost, "/api/v1/logout", nil, 0)
	c.Request().AddCookie(&http.Cookie{Name: token.RefreshCookie, Value: refresh})
	require.NoError(t, env.auth.LogOut(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "logged out", decodeBody(t, rec)["message"])

	stored, err := env.store.GetRefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	require.True(t, stored.Revoked)

	// Without the refresh cookie there is nothing to log out.
	c, _ = env.request(t, http.MethodPost, "/api/v1/logout", nil, 0)
	requireHTTPError(t, env.auth.LogOut(c), http.StatusBadRequest)
}

func TestCurrentUserHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "test_user", "test@example.com", models.RoleCustomer)

	c, rec := env.request(t, http.MethodGet, "/api/v1/user", nil, user.ID)
	require.NoError(t, env.auth.CurrentUser(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test_user", decodeBody(t, rec)["username"])

	c, _ = env.request(t, http.MethodGet, "/api/v1/user", nil, 0)
	requireHTTPError(t, env.auth.CurrentUser(c), http.StatusUnauthorized)
}

func TestForgotPasswordHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "test_user", "test@example.com", models.RoleCustomer)

	// Known and unknown emails get the same message; only the known one
	// carries a token.
	c, rec := env.request(t, http.MethodPost, "/api/v1/forgot-password", map[string]string{
		"email": "test@example.com",
	}, 0)
	require.NoError(t, env.auth.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)
	known := decodeBody(t, rec)
	require.Equal(t, resetGenericMessage, known["message"])
	require.NotEmpty(t, known["reset_token"])

	c, rec = env.request(t, http.MethodPost, "/api/v1/forgot-password", map[string]string{
		"email": "ghost@example.com",
	}, 0)
	require.NoError(t, env.auth.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)
	unknown := decodeBody(t, rec)
	require.Equal(t, resetGenericMessage, unknown["message"])
	require.NotContains(t, unknown, "reset_token")
}

func TestResetPasswordHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "test_user", "test@example.com", models.RoleCustomer)

	c, rec := env.request(t, http.MethodPost, "/api/v1/forgot-password", map[string]string{
		"email": "test@example.com",
	}, 0)
	require.NoError(t, env.auth.ForgotPassword(c))
	resetToken := decodeBody(t, rec)["reset_token"].(string)

	c, rec = env.request(t, http.MethodPost, "/api/v1/reset-password", map[string]string{
		"token":    resetToken,
		"password": "brand-new-pass",
	}, 0)
	require.NoError(t, env.auth.ResetPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// The new password works, the token is spent.
	c, rec = env.request(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "test_user",
		"password": "brand-new-pass",
	}, 0)
	require.NoError(t, env.auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = env.request(t, http.MethodPost, "/api/v1/reset-password", map[string]string{
		"token":    resetToken,
		"password": "another-pass",
	}, 0)
	requireHTTPError(t, env.auth.ResetPassword(c), http.StatusBadRequest)
}
