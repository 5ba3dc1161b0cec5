package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ddanilenko/inkpost/internal/common/db"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
	"github.com/ddanilenko/inkpost/internal/post/domain"
)

type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, authorID string, id string) (*domain.Post, error)
	List(ctx context.Context, authorID string, filter domain.ListFilter) ([]*domain.Post, int, error)
	Update(ctx context.Context, authorID string, id string, update domain.PostUpdate) (*domain.Post, error)
	Delete(ctx context.Context, authorID string, id string) error
}

type PgPostRepository struct {
	pool *pgxpool.Pool
}

func NewPgPostRepository(pool *pgxpool.Pool) *PgPostRepository {
	return &PgPostRepository{pool: pool}
}

const postColumns = `id, author_id, title, content, image_url, tags, status, created_at, updated_at`

// sortColumns is the whitelist for ORDER BY; anything else falls back to
// created_at so user input never reaches the SQL text.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
}

func scanPost(row interface{ Scan(dest ...interface{}) error }) (*domain.Post, error) {
	var post domain.Post
	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&post.ImageURL,
		&post.Tags,
		&post.Status,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return &post, nil
}

func (r *PgPostRepository) Create(ctx context.Context, post *domain.Post) error {
	start := time.Now()

	query := `
		INSERT INTO posts (id, author_id, title, content, image_url, tags, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		post.ID, post.AuthorID, post.Title, post.Content, post.ImageURL, post.Tags, post.Status,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return db.HandleExecError(err, "create post", start)
	}

	db.MeasureQueryDuration("create post", start)
	return nil
}

func (r *PgPostRepository) FindByID(ctx context.Context, authorID string, id string) (*domain.Post, error) {
	start := time.Now()

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND author_id = $2`

	post, err := scanPost(r.pool.QueryRow(ctx, query, id, authorID))
	if err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrPostNotFound, "find post by id", start)
	}

	db.MeasureQueryDuration("find post by id", start)
	return post, nil
}

func (r *PgPostRepository) List(ctx context.Context, authorID string, filter domain.ListFilter) ([]*domain.Post, int, error) {
	start := time.Now()

	where := `WHERE author_id = $1`
	args := []interface{}{authorID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (title ILIKE $%d OR content ILIKE $%d OR EXISTS (
			SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%d))`, n, n, n)
	}

	var total int
	countQuery := `SELECT count(*) FROM posts ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, db.HandleQueryError(err, commonerrors.ErrInternalError, "count posts", start)
	}

	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	order := "DESC"
	if filter.Order == "asc" {
		order = "ASC"
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM posts %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		postColumns, where, sortBy, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.HandleQueryError(err, commonerrors.ErrInternalError, "list posts", start)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, db.HandleQueryError(err, commonerrors.ErrInternalError, "list posts", start)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.HandleQueryError(err, commonerrors.ErrInternalError, "list posts", start)
	}

	db.MeasureQueryDuration("list posts", start)
	return posts, total, nil
}

func (r *PgPostRepository) Update(ctx context.Context, authorID string, id string, update domain.PostUpdate) (*domain.Post, error) {
	start := time.Now()

	var tags interface{}
	if update.Tags != nil {
		tags = *update.Tags
	}

	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	query := `
		UPDATE posts
		SET title      = COALESCE($3, title),
		    content    = COALESCE($4, content),
		    image_url  = COALESCE($5, image_url),
		    tags       = COALESCE($6, tags),
		    status     = COALESCE($7, status),
		    updated_at = now()
		WHERE id = $1 AND author_id = $2
		RETURNING ` + postColumns

	post, err := scanPost(r.pool.QueryRow(ctx, query, id, authorID, update.Title, update.Content, update.ImageURL, tags, status))
	if err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrPostNotFound, "update post", start)
	}

	db.MeasureQueryDuration("update post", start)
	return post, nil
}

func (r *PgPostRepository) Delete(ctx context.Context, authorID string, id string) error {
	start := time.Now()

	query := `DELETE FROM posts WHERE id = $1 AND author_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, authorID)
	if err != nil {
		return db.HandleExecError(err, "delete post", start)
	}
	if tag.RowsAffected() == 0 {
		db.MeasureQueryDuration("delete post", start)
		return commonerrors.ErrPostNotFound
	}

	db.MeasureQueryDuration("delete post", start)
	return nil
}
