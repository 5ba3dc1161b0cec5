package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ddanilenko/inkpost/internal/auth/domain"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

type mockUserRepository struct {
	createFn             func(ctx context.Context, user *domain.User) error
	findByEmailFn        func(ctx context.Context, email string) (*domain.User, error)
	findByIDFn           func(ctx context.Context, id string) (*domain.User, error)
	updateProfileFn      func(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	updateRefreshTokenFn func(ctx context.Context, id string, tokenHash string) error
	rotateRefreshTokenFn func(ctx context.Context, id string, expectedHash string, newHash string) (bool, error)
	clearRefreshTokenFn  func(ctx context.Context, id string) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.createFn(ctx, user)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findByEmailFn(ctx, email)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	return m.updateProfileFn(ctx, id, update)
}

func (m *mockUserRepository) UpdateRefreshToken(ctx context.Context, id string, tokenHash string) error {
	return m.updateRefreshTokenFn(ctx, id, tokenHash)
}

func (m *mockUserRepository) RotateRefreshToken(ctx context.Context, id string, expectedHash string, newHash string) (bool, error) {
	return m.rotateRefreshTokenFn(ctx, id, expectedHash, newHash)
}

func (m *mockUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return m.clearRefreshTokenFn(ctx, id)
}

// sessionStore is a stateful repository stub that mimics the database's
// compare-and-swap semantics for rotation tests.
type sessionStore struct {
	mu    sync.Mutex
	user  *domain.User
	mocks mockUserRepository
}

func newSessionStore(user *domain.User) *sessionStore {
	return &sessionStore{user: user}
}

func (s *sessionStore) Create(ctx context.Context, user *domain.User) error {
	return s.mocks.createFn(ctx, user)
}

func (s *sessionStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, commonerrors.ErrUserNotFound
	}
	copied := *s.user
	return &copied, nil
}

func (s *sessionStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != id {
		return nil, commonerrors.ErrUserNotFound
	}
	copied := *s.user
	return &copied, nil
}

func (s *sessionStore) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	return s.mocks.updateProfileFn(ctx, id, update)
}

func (s *sessionStore) UpdateRefreshToken(ctx context.Context, id string, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != id {
		return commonerrors.ErrUserNotFound
	}
	s.user.RefreshTokenHash = &tokenHash
	return nil
}

func (s *sessionStore) RotateRefreshToken(ctx context.Context, id string, expectedHash string, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != id {
		return false, nil
	}
	if s.user.RefreshTokenHash == nil || *s.user.RefreshTokenHash != expectedHash {
		return false, nil
	}
	s.user.RefreshTokenHash = &newHash
	return true, nil
}

func (s *sessionStore) ClearRefreshToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil && s.user.ID == id {
		s.user.RefreshTokenHash = nil
	}
	return nil
}

func (s *sessionStore) storedHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.RefreshTokenHash == nil {
		return ""
	}
	return *s.user.RefreshTokenHash
}

// fakeHasher keeps service tests fast; the real bcrypt hasher has its own
// tests in the crypto package.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hash string, password string) error {
	if hash != "hashed:"+password {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}
