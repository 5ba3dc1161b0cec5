package jwtverify

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

var testSecret = []byte("jwtverify-test-secret-0123456789abcdef")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestParseTokenValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})

	claims, err := ParseToken(token, testSecret, func() time.Time { return now })
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, now.Add(time.Hour))
	}
}

func TestParseTokenErrors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:    "malformed",
			token:   "not.a.jwt",
			wantErr: commonerrors.ErrTokenMalformed,
		},
		{
			name: "expired",
			token: signToken(t, testSecret, jwt.MapClaims{
				"sub": "user-1",
				"iat": now.Add(-2 * time.Hour).Unix(),
				"exp": now.Add(-time.Hour).Unix(),
			}),
			wantErr: commonerrors.ErrTokenExpired,
		},
		{
			name: "wrong secret",
			token: signToken(t, []byte("another-secret-0123456789abcdefgh"), jwt.MapClaims{
				"sub": "user-1",
				"exp": now.Add(time.Hour).Unix(),
			}),
			wantErr: commonerrors.ErrTokenInvalid,
		},
		{
			name: "missing subject",
			token: signToken(t, testSecret, jwt.MapClaims{
				"exp": now.Add(time.Hour).Unix(),
			}),
			wantErr: commonerrors.ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, testSecret, func() time.Time { return now })
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseToken error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTokenRejectsUnexpectedMethod(t *testing.T) {
	// alg=none tokens must never pass.
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}

	if _, err := ParseToken(token, testSecret, nil); err == nil {
		t.Error("token with alg=none was accepted")
	}
}
