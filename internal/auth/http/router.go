// Package http exposes the account and session endpoints.
package http

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ddanilenko/inkpost/internal/auth/domain"
	"github.com/ddanilenko/inkpost/internal/auth/service"
	"github.com/ddanilenko/inkpost/internal/common/constants"
	commonhttp "github.com/ddanilenko/inkpost/internal/common/http"
	"github.com/ddanilenko/inkpost/internal/common/jwtverify"
	"github.com/ddanilenko/inkpost/internal/common/logger"
	"github.com/ddanilenko/inkpost/internal/media"
)

type registerRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateProfileRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
}

type Handler struct {
	auth     *service.AuthService
	uploader media.Uploader
	log      *logger.Logger
}

func NewHandler(auth *service.AuthService, uploader media.Uploader, log *logger.Logger) *Handler {
	return &Handler{auth: auth, uploader: uploader, log: log}
}

// Register wires the account routes into mux. The authMW gate is shared with
// the other protected route groups so every one of them reads the same token.
func (h *Handler) Register(mux *http.ServeMux, authMW func(http.Handler) http.Handler) {
	mux.HandleFunc("/api/v1/users/register", h.methodOnly(http.MethodPost, h.handleRegister))
	mux.HandleFunc("/api/v1/users/login", h.methodOnly(http.MethodPost, h.handleLogin))
	mux.HandleFunc("/api/v1/users/refresh", h.methodOnly(http.MethodPost, h.handleRefresh))

	mux.Handle("/api/v1/users/logout", authMW(http.HandlerFunc(h.methodOnly(http.MethodPost, h.handleLogout))))
	mux.Handle("/api/v1/users/me", authMW(http.HandlerFunc(h.methodOnly(http.MethodGet, h.handleMe))))
	mux.Handle("/api/v1/users/profile", authMW(http.HandlerFunc(h.methodOnly(http.MethodPut, h.handleUpdateProfile))))
}

func (h *Handler) methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	var avatarURL string

	if isMultipart(r) {
		if err := r.ParseMultipartForm(constants.DefaultMaxRequestSize); err != nil {
			commonhttp.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		req.FullName = r.FormValue("fullName")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")

		if msgs := commonhttp.ValidateStruct(req); msgs != nil {
			commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
			return
		}

		url, err := h.uploadAvatar(r)
		if err != nil {
			commonhttp.HandleError(w, r, err, h.log)
			return
		}
		avatarURL = url
	} else {
		if err := commonhttp.DecodeJSON(r, &req); err != nil {
			commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msgs := commonhttp.ValidateStruct(req); msgs != nil {
			commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
			return
		}
	}

	profile, err := h.auth.Register(r.Context(), req.Email, req.Password, req.FullName, avatarURL)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusCreated, profile, "account created")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msgs := commonhttp.ValidateStruct(req); msgs != nil {
		commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
		return
	}

	profile, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	setAuthCookies(w, r, pair)
	commonhttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"user":        profile,
		"accessToken": pair.AccessToken,
	}, "logged in")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromRequest(r)
	if token == "" {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		clearAuthCookies(w, r)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	setAuthCookies(w, r, pair)
	commonhttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"accessToken": pair.AccessToken,
	}, "session refreshed")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	if err := h.auth.Logout(r.Context(), userID); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	clearAuthCookies(w, r)
	commonhttp.WriteSuccess(w, http.StatusOK, nil, "logged out")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	profile, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusOK, profile, "")
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	var update domain.ProfileUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(constants.DefaultMaxRequestSize); err != nil {
			commonhttp.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		req := updateProfileRequest{
			FullName: formValueOptional(r, "fullName"),
			Bio:      formValueOptional(r, "bio"),
		}
		if msgs := commonhttp.ValidateStruct(req); msgs != nil {
			commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
			return
		}
		update.FullName = req.FullName
		update.Bio = req.Bio

		url, err := h.uploadAvatar(r)
		if err != nil {
			commonhttp.HandleError(w, r, err, h.log)
			return
		}
		if url != "" {
			update.AvatarURL = &url
		}
	} else {
		var req updateProfileRequest
		if err := commonhttp.DecodeJSON(r, &req); err != nil {
			commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msgs := commonhttp.ValidateStruct(req); msgs != nil {
			commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
			return
		}
		update.FullName = req.FullName
		update.Bio = req.Bio
	}

	profile, err := h.auth.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusOK, profile, "profile updated")
}

// uploadAvatar stores the optional avatar part and returns its public URL, or
// "" when no file was sent.
func (h *Handler) uploadAvatar(r *http.Request) (string, error) {
	file, header, err := r.FormFile("avatar")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", media.ErrUploadFailed.WithCause(err)
	}
	defer file.Close()

	if h.uploader == nil {
		return "", media.ErrUploadFailed
	}

	return h.uploader.Upload(r.Context(), "avatars", detectContentType(header), header.Size, file)
}

func detectContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(constants.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req refreshRequest
	if err := commonhttp.DecodeJSON(r, &req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func formValueOptional(r *http.Request, key string) *string {
	if values, ok := r.MultipartForm.Value[key]; ok && len(values) > 0 {
		return &values[0]
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
