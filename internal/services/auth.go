package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"
	"rag-worker/pkg/utils"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/google/uuid"
)

// AuthService registers users and exchanges credentials for access tokens
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

var errInvalidCredentials = apperrors.NewError(apperrors.ErrUnauthorized.Code, "Invalid credentials", apperrors.ErrUnauthorized.Status)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) SignUp(ctx context.Context, req *models.SignupRequest) (*models.SignupResponse, error) {
	email := normalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.NewError(apperrors.ErrConflict.Code, "Email already exists", apperrors.ErrConflict.Status)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
	}
	// Create still reports a conflict when a concurrent signup wins the race
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	fylogger.InfoLog(ctx, "user signed up", map[string]interface{}{"user_id": user.ID})

	return &models.SignupResponse{
		Message: "User created successfully",
		UserID:  user.ID,
	}, nil
}

// Login returns the same error for an unknown email and a wrong password
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			fylogger.ErrorLog(ctx, "user lookup failed", err, nil)
		}
		return nil, errInvalidCredentials
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("generate token: %w", err))
	}

	return &models.LoginResponse{AccessToken: token}, nil
}
