// Package domain holds the post entities and list filtering types.
package domain

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Tags      []string  `json:"tags"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostUpdate carries the mutable fields; nil leaves a field unchanged.
type PostUpdate struct {
	Title    *string
	Content  *string
	ImageURL *string
	Tags     *[]string
	Status   *Status
}

type ListFilter struct {
	Page   int
	Limit  int
	Search string
	Status Status
	SortBy string
	Order  string
}

type Page struct {
	Posts       []*Post `json:"posts"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	TotalPosts  int     `json:"totalPosts"`
}
