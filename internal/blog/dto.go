package blog

import (
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
)

// PostDTO is the list/detail representation of a post.
type PostDTO struct {
	ID               uuid.UUID  `json:"id"`
	AuthorID         *uuid.UUID `json:"author_id,omitempty"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Excerpt          string     `json:"excerpt"`
	Content          string     `json:"content,omitempty"`
	FeaturedImageURL *string    `json:"featured_image_url,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CommentDTO is the outward representation of a comment. The session token
// never leaves the service.
type CommentDTO struct {
	ID        uuid.UUID  `json:"id"`
	PostID    uuid.UUID  `json:"post_id"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	Name      string     `json:"name"`
	Content   string     `json:"content"`
	Approved  bool       `json:"approved"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PostDetailDTO bundles a post with the comments visible to the requester.
type PostDetailDTO struct {
	Post     PostDTO      `json:"post"`
	Comments []CommentDTO `json:"comments"`
}

// PostPage is one page of published posts with an optional next cursor.
type PostPage struct {
	Posts      []PostDTO `json:"posts"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// CommentPage is one page of the moderation queue.
type CommentPage struct {
	Comments   []CommentDTO `json:"comments"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func postFromModel(p *models.Post, includeContent bool) PostDTO {
	dto := PostDTO{
		ID:               p.ID,
		AuthorID:         p.AuthorID,
		Title:            p.Title,
		Slug:             p.Slug,
		Excerpt:          p.Excerpt,
		FeaturedImageURL: p.FeaturedImageURL,
		Status:           p.Status.String(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if includeContent {
		dto.Content = p.Content
	}
	return dto
}

func commentFromModel(c *models.Comment) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Name:      c.Name,
		Content:   c.Content,
		Approved:  c.Approved,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func commentsFromModels(rows []models.Comment) []CommentDTO {
	out := make([]CommentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, commentFromModel(&rows[i]))
	}
	return out
}
