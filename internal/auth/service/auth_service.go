// Package service implements account lifecycle and session management:
// registration, login, refresh token rotation and logout.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ddanilenko/inkpost/internal/auth/domain"
	"github.com/ddanilenko/inkpost/internal/auth/repository"
	"github.com/ddanilenko/inkpost/internal/common/crypto"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
	"github.com/ddanilenko/inkpost/internal/common/logger"
	"github.com/ddanilenko/inkpost/internal/observability/metrics"
)

// UserProfile is the sanitized projection returned to clients. Password and
// refresh token hashes never leave the service layer.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	AvatarURL string    `json:"avatarUrl"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type AuthService struct {
	users  repository.UserRepository
	hasher crypto.PasswordHasher
	ids    crypto.IDGenerator
	tokens *TokenIssuer
	log    *logger.Logger
}

func NewAuthService(
	users repository.UserRepository,
	hasher crypto.PasswordHasher,
	ids crypto.IDGenerator,
	tokens *TokenIssuer,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		ids:    ids,
		tokens: tokens,
		log:    log,
	}
}

// HashRefreshToken is the digest stored in place of the raw refresh token. It
// is deterministic, so the stored value still identifies exactly one literal
// token string.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) Register(ctx context.Context, email, password, fullName, avatarURL string) (*UserProfile, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{"action": "register"}).Errorf("failed to hash password: %v", err)
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	user := &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		AvatarURL:    avatarURL,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, commonerrors.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{"action": "register"}).Warn("registration rejected: email already in use")
			return nil, err
		}
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{"action": "register", "user_id": user.ID}).Info("account created")
	return profileOf(user), nil
}

// Login verifies credentials and starts a session, unconditionally replacing
// any refresh token already on record.
func (s *AuthService) Login(ctx context.Context, email, password string) (*UserProfile, *TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, commonerrors.ErrInternalError.WithCause(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		s.log.WithFields(ctx, logger.Fields{"action": "login", "user_id": user.ID}).Warn("login rejected: wrong password")
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, commonerrors.ErrInternalError.WithCause(err)
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, HashRefreshToken(pair.RefreshToken)); err != nil {
		return nil, nil, commonerrors.ErrInternalError.WithCause(err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.WithFields(ctx, logger.Fields{"action": "login", "user_id": user.ID}).Info("session started")
	return profileOf(user), pair, nil
}

// Refresh rotates the session token pair. The presented refresh token must be
// valid, belong to an existing account and match the stored hash; the swap to
// the new hash is atomic, so a replayed token loses the race and is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, commonerrors.ErrTokenExpired) {
			metrics.RefreshTokensExpired.Inc()
		}
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{"action": "refresh", "user_id": claims.UserID}).Warn("refresh rejected: account no longer exists")
			return nil, err
		}
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	rotated, err := s.users.RotateRefreshToken(ctx, user.ID, HashRefreshToken(refreshToken), HashRefreshToken(pair.RefreshToken))
	if err != nil {
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}
	if !rotated {
		metrics.RefreshTokenReuseDetected.Inc()
		s.log.WithFields(ctx, logger.Fields{"action": "refresh", "user_id": user.ID}).Warn("refresh rejected: token does not match stored session")
		return nil, ErrRefreshTokenMismatch
	}

	metrics.RefreshTokensRotated.Inc()
	s.log.WithFields(ctx, logger.Fields{"action": "refresh", "user_id": user.ID}).Info("session rotated")
	return pair, nil
}

// Logout ends the session by clearing the stored refresh token hash. It is
// idempotent: logging out an already-ended session succeeds.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return commonerrors.ErrInternalError.WithCause(err)
	}

	metrics.RefreshTokensRevoked.Inc()
	s.log.WithFields(ctx, logger.Fields{"action": "logout", "user_id": userID}).Info("session ended")
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}
	return profileOf(user), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*UserProfile, error) {
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{"action": "update_profile", "user_id": userID}).Info("profile updated")
	return profileOf(user), nil
}

func (s *AuthService) issuePair(userID string) (*TokenPair, error) {
	accessToken, accessExpiresAt, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiresAt, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func profileOf(user *domain.User) *UserProfile {
	return &UserProfile{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
	}
}
