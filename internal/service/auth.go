package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/auth"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

const (
	msgInvalidCredentials  = "Invalid credentials"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgInvalidAccessToken  = "Given token not valid for any token type"
)

// Login checks the credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (auth.Tokens, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		return auth.Tokens{}, errx.Unauthorized(domain.ErrUnauthorized, msgInvalidCredentials)
	}
	tokens, err := s.issuer.Issue(user.ID)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return tokens, nil
}

// RefreshToken returns a new access token alongside the same refresh token.
func (s *Service) RefreshToken(_ context.Context, refresh string) (auth.Tokens, error) {
	access, err := s.issuer.Refresh(refresh)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return auth.Tokens{}, errx.Unauthorized(err, msgInvalidRefreshToken)
		}
		return auth.Tokens{}, err
	}
	return auth.Tokens{Access: access, Refresh: refresh}, nil
}

// Authenticate resolves an access token to an active user.
func (s *Service) Authenticate(ctx context.Context, access string) (*domain.User, error) {
	claims, err := s.issuer.Parse(access, auth.TokenAccess)
	if err != nil {
		return nil, errx.Unauthorized(err, msgInvalidAccessToken)
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, errx.Unauthorized(domain.ErrUnauthorized, msgInvalidAccessToken)
	}
	return user, nil
}

// CreateUser registers an active operator.
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errx.BadRequest(domain.ErrValidation, "Username and password are required.")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Username: username, Email: email, PasswordHash: hash, IsActive: true}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, errx.BadRequest(err, "A user with that username already exists.")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
