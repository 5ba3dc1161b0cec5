// Package http exposes the post CRUD endpoints.
package http

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ddanilenko/inkpost/internal/common/constants"
	commonhttp "github.com/ddanilenko/inkpost/internal/common/http"
	"github.com/ddanilenko/inkpost/internal/common/jwtverify"
	"github.com/ddanilenko/inkpost/internal/common/logger"
	"github.com/ddanilenko/inkpost/internal/media"
	"github.com/ddanilenko/inkpost/internal/post/domain"
	"github.com/ddanilenko/inkpost/internal/post/service"
)

type createPostRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"omitempty,max=20"`
	Status  string   `json:"status" validate:"omitempty,oneof=draft published"`
}

type updatePostRequest struct {
	Title   *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string   `json:"content" validate:"omitempty,min=1"`
	Tags    *[]string `json:"tags" validate:"omitempty,max=20"`
	Status  *string   `json:"status" validate:"omitempty,oneof=draft published"`
}

type Handler struct {
	posts    *service.PostService
	uploader media.Uploader
	log      *logger.Logger
}

func NewHandler(posts *service.PostService, uploader media.Uploader, log *logger.Logger) *Handler {
	return &Handler{posts: posts, uploader: uploader, log: log}
}

// Register wires the post routes into mux. Every route is behind authMW; all
// reads and writes are scoped to the authenticated author.
func (h *Handler) Register(mux *http.ServeMux, authMW func(http.Handler) http.Handler) {
	mux.Handle("/api/v1/posts", authMW(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/api/v1/posts/", authMW(http.HandlerFunc(h.handleItem)))
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/posts/")
	if id == "" || strings.Contains(id, "/") {
		commonhttp.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	authorID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	var req createPostRequest
	var imageURL string

	if isMultipart(r) {
		if err := r.ParseMultipartForm(constants.DefaultMaxRequestSize); err != nil {
			commonhttp.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		req.Title = r.FormValue("title")
		req.Content = r.FormValue("content")
		req.Status = r.FormValue("status")
		req.Tags = splitTags(r.FormValue("tags"))

		if msgs := commonhttp.ValidateStruct(req); msgs != nil {
			commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
			return
		}

		url, err := h.uploadImage(r)
		if err != nil {
			commonhttp.HandleError(w, r, err, h.log)
			return
		}
		imageURL = url
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

	post, err := h.posts.Create(r.Context(), authorID, req.Title, req.Content, imageURL, req.Tags, domain.Status(req.Status))
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusCreated, post, "post created")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	authorID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	query := r.URL.Query()
	filter := domain.ListFilter{
		Search: query.Get("search"),
		Status: domain.Status(query.Get("status")),
		SortBy: query.Get("sortBy"),
		Order:  query.Get("order"),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))

	page, err := h.posts.List(r.Context(), authorID, filter)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusOK, page, "")
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	authorID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	post, err := h.posts.Get(r.Context(), authorID, id)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusOK, post, "")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	authorID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	var req updatePostRequest
	var update domain.PostUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(constants.DefaultMaxRequestSize); err != nil {
			commonhttp.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		req.Title = formValueOptional(r, "title")
		req.Content = formValueOptional(r, "content")
		req.Status = formValueOptional(r, "status")
		if raw := formValueOptional(r, "tags"); raw != nil {
			tags := splitTags(*raw)
			req.Tags = &tags
		}

		if msgs := commonhttp.ValidateStruct(req); msgs != nil {
			commonhttp.WriteErrors(w, http.StatusBadRequest, "validation failed", msgs)
			return
		}

		url, err := h.uploadImage(r)
		if err != nil {
			commonhttp.HandleError(w, r, err, h.log)
			return
		}
		if url != "" {
			update.ImageURL = &url
		}
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

	update.Title = req.Title
	update.Content = req.Content
	update.Tags = req.Tags
	if req.Status != nil {
		status := domain.Status(*req.Status)
		update.Status = &status
	}

	post, err := h.posts.Update(r.Context(), authorID, id, update)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusOK, post, "post updated")
}

// uploadImage stores the optional image part and returns its public URL, or
// "" when no file was sent.
func (h *Handler) uploadImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
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

	return h.uploader.Upload(r.Context(), "posts", contentTypeOf(header), header.Size, file)
}

func contentTypeOf(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

func formValueOptional(r *http.Request, key string) *string {
	if values, ok := r.MultipartForm.Value[key]; ok && len(values) > 0 {
		return &values[0]
	}
	return nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	authorID, ok := jwtverify.PrincipalFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	if err := h.posts.Delete(r.Context(), authorID, id); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteSuccess(w, http.StatusOK, nil, "post deleted")
}
