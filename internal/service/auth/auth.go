// Package auth verifies identity and manages the password reset token
// lifecycle.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/wood_market/internal/apperr"
	"github.com/Skotchmaster/wood_market/internal/hash"
	"github.com/Skotchmaster/wood_market/internal/models"
	"github.com/Skotchmaster/wood_market/internal/store"
)

const resetTokenTTL = time.Hour

type Service struct {
	Store store.Store
}

type Candidate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (c Candidate) validate() error {
	switch {
	case len(c.Username) < 3 || len(c.Username) > 50:
		return fmt.Errorf("%w: username must be 3-50 characters", apperr.ErrInvalidInput)
	case !strings.Contains(c.Email, "@"):
		return fmt.Errorf("%w: invalid email", apperr.ErrInvalidInput)
	case len(c.Password) < 6:
		return fmt.Errorf("%w: password must be at least 6 characters", apperr.ErrInvalidInput)
	case len(c.FullName) < 2:
		return fmt.Errorf("%w: full name must be at least 2 characters", apperr.ErrInvalidInput)
	case !models.ValidRole(c.Role):
		return fmt.Errorf("%w: role must be customer or supplier", apperr.ErrInvalidInput)
	}
	return nil
}

// Register hashes before storing; the raw password is never persisted.
// Duplicates are checked before insert, with the store's unique constraints
// as the backstop for the race window.
func (s *Service) Register(ctx context.Context, c Candidate) (*models.User, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	if _, err := s.Store.GetUserByUsername(ctx, c.Username); err == nil {
		return nil, apperr.ErrDuplicateUsername
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if _, err := s.Store.GetUserByEmail(ctx, c.Email); err == nil {
		return nil, apperr.ErrDuplicateEmail
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(c.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: pwHash,
		FullName:     c.FullName,
		Role:         c.Role,
	}
	if err := s.Store.CreateUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login tries the identifier as a username first, then as an email; the
// first match wins. The error is identical for an unknown identifier and a
// wrong password so callers cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.Store.GetUserByUsername(ctx, identifier)
	if errors.Is(err, apperr.ErrNotFound) {
		user, err = s.Store.GetUserByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset never reveals whether the email exists. On a match a
// fresh high-entropy token with a one hour expiry replaces any outstanding
// token. The token is returned to the caller for delivery; it is never
// logged here.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cannot generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.Store.SetResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword is single use: the store clears the token in the same
// conditional update that swaps the password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperr.ErrInvalidOrExpiredToken
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", apperr.ErrInvalidInput)
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.ResetPasswordByToken(ctx, token, pwHash, time.Now())
}
