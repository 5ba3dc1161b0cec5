// Package service implements author-scoped post management.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ddanilenko/inkpost/internal/common/constants"
	"github.com/ddanilenko/inkpost/internal/common/crypto"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
	"github.com/ddanilenko/inkpost/internal/common/logger"
	"github.com/ddanilenko/inkpost/internal/post/domain"
	"github.com/ddanilenko/inkpost/internal/post/repository"
)

var ErrInvalidPostStatus = commonerrors.NewDomainError(
	"INVALID_POST_STATUS",
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"status must be draft or published",
)

type PostService struct {
	posts repository.PostRepository
	ids   crypto.IDGenerator
	log   *logger.Logger
}

func NewPostService(posts repository.PostRepository, ids crypto.IDGenerator, log *logger.Logger) *PostService {
	return &PostService{posts: posts, ids: ids, log: log}
}

func (s *PostService) Create(ctx context.Context, authorID, title, content, imageURL string, tags []string, status domain.Status) (*domain.Post, error) {
	if status == "" {
		status = domain.StatusDraft
	}
	if !status.Valid() {
		return nil, ErrInvalidPostStatus
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}
	if tags == nil {
		tags = []string{}
	}

	post := &domain.Post{
		ID:       id,
		AuthorID: authorID,
		Title:    title,
		Content:  content,
		ImageURL: imageURL,
		Tags:     tags,
		Status:   status,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{"action": "create_post", "post_id": post.ID, "user_id": authorID}).Info("post created")
	return post, nil
}

func (s *PostService) Get(ctx context.Context, authorID, id string) (*domain.Post, error) {
	post, err := s.posts.FindByID(ctx, authorID, id)
	if err != nil {
		if errors.Is(err, commonerrors.ErrPostNotFound) {
			return nil, err
		}
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}
	return post, nil
}

// List applies defaults and bounds to the filter before querying, so callers
// can pass it straight from the query string.
func (s *PostService) List(ctx context.Context, authorID string, filter domain.ListFilter) (*domain.Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = constants.DefaultPageSize
	}
	if filter.Limit > constants.MaxPageSize {
		filter.Limit = constants.MaxPageSize
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidPostStatus
	}

	posts, total, err := s.posts.List(ctx, authorID, filter)
	if err != nil {
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	totalPages := total / filter.Limit
	if total%filter.Limit != 0 {
		totalPages++
	}

	return &domain.Page{
		Posts:       posts,
		CurrentPage: filter.Page,
		TotalPages:  totalPages,
		TotalPosts:  total,
	}, nil
}

func (s *PostService) Update(ctx context.Context, authorID, id string, update domain.PostUpdate) (*domain.Post, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, ErrInvalidPostStatus
	}

	post, err := s.posts.Update(ctx, authorID, id, update)
	if err != nil {
		if errors.Is(err, commonerrors.ErrPostNotFound) {
			return nil, err
		}
		return nil, commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{"action": "update_post", "post_id": id, "user_id": authorID}).Info("post updated")
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, authorID, id string) error {
	if err := s.posts.Delete(ctx, authorID, id); err != nil {
		if errors.Is(err, commonerrors.ErrPostNotFound) {
			return err
		}
		return commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{"action": "delete_post", "post_id": id, "user_id": authorID}).Info("post deleted")
	return nil
}
