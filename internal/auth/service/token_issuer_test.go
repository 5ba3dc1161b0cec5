package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ddanilenko/inkpost/internal/common/clock"
	"github.com/ddanilenko/inkpost/internal/common/crypto"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

func newTestIssuer(clk clock.Clock) *TokenIssuer {
	return NewTokenIssuer(
		testAccessSecret,
		testRefreshSecret,
		15*time.Minute,
		7*24*time.Hour,
		crypto.NewUUIDGenerator(),
		clk,
	)
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	token, expiresAt, err := issuer.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if want := clk.Now().Add(15 * time.Minute); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
}

func TestTokenIssuerPurposeSeparation(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	accessToken, _, err := issuer.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	refreshToken, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	if _, err := issuer.VerifyRefreshToken(accessToken); !errors.Is(err, commonerrors.ErrTokenInvalid) {
		t.Errorf("access token passed refresh verification: err = %v", err)
	}
	if _, err := issuer.VerifyAccessToken(refreshToken); !errors.Is(err, commonerrors.ErrTokenInvalid) {
		t.Errorf("refresh token passed access verification: err = %v", err)
	}
}

func TestTokenIssuerExpiry(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	token, _, err := issuer.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	clk.Advance(16 * time.Minute)

	if _, err := issuer.VerifyAccessToken(token); !errors.Is(err, commonerrors.ErrTokenExpired) {
		t.Errorf("expected expired token error, got %v", err)
	}
}

func TestTokenIssuerUniqueTokens(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	first, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	second, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	// Same user, same instant: the jti claim must still make them distinct.
	if first == second {
		t.Error("two tokens minted at the same instant are identical")
	}
}
