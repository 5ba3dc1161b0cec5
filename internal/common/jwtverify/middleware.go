package jwtverify

import (
	"context"
	"net/http"
	"strings"

	"github.com/ddanilenko/inkpost/internal/common/clock"
	commonhttp "github.com/ddanilenko/inkpost/internal/common/http"
	"github.com/ddanilenko/inkpost/internal/common/logger"
)

type contextKey string

const principalKey contextKey = "principal_id"

// Config controls where the middleware looks for the access token. The
// Authorization header is always consulted first; CookieName, when set, is the
// fallback for browser clients.
type Config struct {
	Secret     string
	CookieName string
	Clock      clock.Clock
}

func Middleware(cfg Config, log *logger.Logger) func(next http.Handler) http.Handler {
	secret := []byte(cfg.Secret)
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r, cfg.CookieName)
			if tokenString == "" {
				log.Warnf("auth failed path=%s: missing access token", r.URL.Path)
				commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}

			claims, err := ParseToken(tokenString, secret, clk.Now)
			if err != nil {
				log.Warnf("auth failed path=%s: %v", r.URL.Path, err)
				commonhttp.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the verified user id attached by Middleware.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey).(string)
	return id, ok
}

func extractToken(r *http.Request, cookieName string) string {
	raw := r.Header.Get("Authorization")
	if strings.HasPrefix(raw, "Bearer ") {
		return strings.TrimPrefix(raw, "Bearer ")
	}

	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			return cookie.Value
		}
	}

	return ""
}
