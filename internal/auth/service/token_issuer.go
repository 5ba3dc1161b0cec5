package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ddanilenko/inkpost/internal/common/clock"
	"github.com/ddanilenko/inkpost/internal/common/crypto"
	"github.com/ddanilenko/inkpost/internal/common/jwtverify"
	"github.com/ddanilenko/inkpost/internal/observability/metrics"
)

// TokenIssuer mints and verifies the HS256 token pair. Access and refresh
// tokens are signed with separate secrets, so presenting one where the other
// is expected fails the signature check.
type TokenIssuer struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	idGenerator     crypto.IDGenerator
	clock           clock.Clock
}

func NewTokenIssuer(
	accessSecret string,
	refreshSecret string,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
	idGenerator crypto.IDGenerator,
	clk clock.Clock,
) *TokenIssuer {
	if clk == nil {
		clk = clock.NewRealClock()
	}

	return &TokenIssuer{
		accessSecret:    []byte(accessSecret),
		refreshSecret:   []byte(refreshSecret),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		idGenerator:     idGenerator,
		clock:           clk,
	}
}

func (t *TokenIssuer) AccessTokenTTL() time.Duration {
	return t.accessTokenTTL
}

func (t *TokenIssuer) RefreshTokenTTL() time.Duration {
	return t.refreshTokenTTL
}

func (t *TokenIssuer) IssueAccessToken(userID string) (string, time.Time, error) {
	token, expiresAt, err := t.sign(userID, t.accessSecret, t.accessTokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	metrics.AccessTokensIssued.Inc()
	return token, expiresAt, nil
}

func (t *TokenIssuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	token, expiresAt, err := t.sign(userID, t.refreshSecret, t.refreshTokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	metrics.RefreshTokensIssued.Inc()
	return token, expiresAt, nil
}

func (t *TokenIssuer) VerifyAccessToken(tokenString string) (jwtverify.Claims, error) {
	return jwtverify.ParseToken(tokenString, t.accessSecret, t.clock.Now)
}

func (t *TokenIssuer) VerifyRefreshToken(tokenString string) (jwtverify.Claims, error) {
	return jwtverify.ParseToken(tokenString, t.refreshSecret, t.clock.Now)
}

func (t *TokenIssuer) sign(userID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	jti, err := t.idGenerator.NewID()
	if err != nil {
		return "", time.Time{}, err
	}

	now := t.clock.Now()
	expiresAt := now.Add(ttl)

	// jti makes every token unique even when two are minted for the same
	// user within the same second, which the rotation compare relies on.
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}
