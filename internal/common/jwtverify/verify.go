// Package jwtverify holds stateless access-token verification and the
// middleware that gates protected routes.
package jwtverify

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
	"github.com/ddanilenko/inkpost/internal/observability/metrics"
)

type Claims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseToken verifies an HS256 token against the given secret. The returned
// error distinguishes expired, malformed and otherwise-invalid tokens; a token
// signed for another purpose fails the signature check and comes back invalid.
func ParseToken(tokenString string, secret []byte, now func() time.Time) (Claims, error) {
	metrics.JWTValidationsTotal.Inc()

	if now == nil {
		now = time.Now
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(now))
	if err != nil || !parsed.Valid {
		metrics.JWTValidationsFailed.Inc()
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, commonerrors.ErrTokenMalformed.WithCause(err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, commonerrors.ErrTokenExpired.WithCause(err)
		default:
			return Claims{}, commonerrors.ErrTokenInvalid.WithCause(err)
		}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		metrics.JWTValidationsFailed.Inc()
		return Claims{}, commonerrors.ErrTokenInvalid
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		metrics.JWTValidationsFailed.Inc()
		return Claims{}, commonerrors.ErrTokenInvalid
	}

	claims := Claims{UserID: sub}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}
