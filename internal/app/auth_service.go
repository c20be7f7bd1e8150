/**
 * @description
 * This file contains the session logic of the schoolfees-service: signup, password login,
 * cookie authentication with silent access-token refresh, and logout.
 *
 * Key features:
 * - At most one refresh token per user is active. Logging in again supersedes the previous one.
 * - Presenting a verified refresh token that is no longer the active one is treated as token
 *   theft: every session of the user is ended and the request is rejected.
 *
 * @dependencies
 * - internal/auth: Password hashing and JWT issuance.
 * - internal/store: Users and refresh tokens.
 * - pkg/rabbitmq: `user.signed_up` events.
 * - go.uber.org/zap: Structured logging.
 */

package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/schoolfees-service/internal/auth"
	"github.com/transfa/schoolfees-service/internal/domain"
	"github.com/transfa/schoolfees-service/internal/metrics"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/rabbitmq"
	"go.uber.org/zap"
)

const tokenTypeBearer = "bearer"

// Session is the outcome of authenticating a request.
// RefreshedAccessToken is set when the access token had expired and a new one was minted.
type Session struct {
	User                 *domain.User
	RefreshedAccessToken string
}

// AuthService implements signup, login and cookie-session validation.
type AuthService struct {
	repo      store.Repository
	tokens    *auth.TokenService
	publisher rabbitmq.Publisher
	exchange  string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewAuthService(repo store.Repository, tokens *auth.TokenService, publisher rabbitmq.Publisher, exchange string, logger *zap.Logger, m *metrics.Metrics) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	}
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		publisher: publisher,
		exchange:  exchange,
		logger:    logger.With(zap.String("component", "auth_service")),
		metrics:   m,
	}
}

// Tokens exposes the token lifetimes to the cookie writer.
func (s *AuthService) Tokens() *auth.TokenService {
	return s.tokens
}

// Signup creates a school_admin user with a hashed password.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if req.FirstName == "" || req.LastName == "" {
		return nil, validationError("first_name and last_name are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, validationError("email is not a valid address")
	}
	if req.Password == "" {
		return nil, validationError("password is required")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, domain.NewUser{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		PhoneNumber:    strings.TrimSpace(req.PhoneNumber),
		HashedPassword: hashed,
		RoleName:       domain.RoleSchoolAdmin,
		SchoolID:       req.SchoolID,
	})
	if err != nil {
		return nil, err
	}

	event := domain.UserSignedUpEvent{
		UserID:    user.ID,
		Email:     user.Email,
		RoleName:  domain.RoleSchoolAdmin,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, s.exchange, domain.RoutingKeyUserSignedUp, event); err != nil {
		s.logger.Warn("failed to publish signup event", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("role", domain.RoleSchoolAdmin))
	return user, nil
}

// Login checks the password and starts a new session, superseding any previous one.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.AuthFailure("incorrect_credentials")
			return nil, nil, ErrIncorrectCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := auth.CheckPassword(user.HashedPassword, password); err != nil {
		s.metrics.AuthFailure("incorrect_credentials")
		return nil, nil, ErrIncorrectCredentials
	}

	userID := user.ID.String()
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.ReplaceActiveRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", userID))
	return user, &domain.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: tokenTypeBearer}, nil
}

// Authenticate resolves the user behind the access/refresh cookie pair.
// An expired access token is replaced when the refresh token is still the active one.
func (s *AuthService) Authenticate(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if strings.TrimSpace(accessToken) == "" || strings.TrimSpace(refreshToken) == "" {
		s.metrics.AuthFailure("missing_credentials")
		return nil, ErrMissingCredentials
	}

	if userID, err := s.tokens.Verify(accessToken); err == nil {
		user, err := s.loadUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Session{User: user}, nil
	}

	user, err := s.verifyActiveRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccessToken(user.ID.String())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("access token refreshed", zap.String("user_id", user.ID.String()))
	return &Session{User: user, RefreshedAccessToken: access}, nil
}

// Refresh mints a new access token from the refresh cookie.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		s.metrics.AuthFailure("missing_credentials")
		return nil, ErrMissingCredentials
	}
	user, err := s.verifyActiveRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccessToken(user.ID.String())
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, TokenType: tokenTypeBearer}, nil
}

// Logout ends every session of the user.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeactivateRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	s.logger.Info("user logged out", zap.String("user_id", userID.String()))
	return nil
}

func (s *AuthService) verifyActiveRefresh(ctx context.Context, refreshToken string) (*domain.User, error) {
	userIDStr, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.metrics.AuthFailure("invalid_token")
		return nil, ErrInvalidCredentials
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		s.metrics.AuthFailure("invalid_token")
		return nil, ErrInvalidCredentials
	}

	active, err := s.repo.GetActiveRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to load active refresh token", zap.String("user_id", userIDStr), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if active == nil || subtle.ConstantTimeCompare([]byte(active.Token), []byte(refreshToken)) != 1 {
		if err := s.repo.DeactivateRefreshTokens(ctx, userID); err != nil {
			s.logger.Error("failed to revoke sessions after refresh token reuse", zap.String("user_id", userIDStr), zap.Error(err))
		}
		s.logger.Warn("refresh token reuse detected; sessions revoked", zap.String("user_id", userIDStr))
		s.metrics.AuthFailure("refresh_reuse")
		return nil, ErrRefreshTokenReuse
	}

	return s.loadUser(ctx, userIDStr)
}

func (s *AuthService) loadUser(ctx context.Context, userIDStr string) (*domain.User, error) {
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		s.metrics.AuthFailure("invalid_token")
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("failed to load user for session", zap.String("user_id", userIDStr), zap.Error(err))
		}
		s.metrics.AuthFailure("unknown_user")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
