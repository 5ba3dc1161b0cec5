package http

import (
	"net/http"
	"time"

	"github.com/ddanilenko/inkpost/internal/auth/service"
	"github.com/ddanilenko/inkpost/internal/common/constants"
)

// refreshCookiePath keeps the refresh token off every request except the
// session endpoints themselves.
const refreshCookiePath = "/api/v1/users"

func setAuthCookies(w http.ResponseWriter, r *http.Request, pair *service.TokenPair) {
	secure := r.TLS != nil

	http.SetCookie(w, &http.Cookie{
		Name:     constants.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     constants.RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	secure := r.TLS != nil
	expired := time.Unix(0, 0)

	http.SetCookie(w, &http.Cookie{
		Name:     constants.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     constants.RefreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
