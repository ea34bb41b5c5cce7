package blog

import (
	"context"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"github.com/verdanthq/verdant-backend/pkg/pagination"
	"gorm.io/gorm"
)

// PostRepository is the post persistence surface the blog service needs.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	FindPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListPublished(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Post, error)
	PublishTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountByStatus(ctx context.Context, status enums.PostStatus) (int64, error)
	ListByStatus(ctx context.Context, status enums.PostStatus, limit int) ([]models.Post, error)
}

// CommentRepository is the comment persistence surface the blog service needs.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	FindCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
	ListVisibleForPost(ctx context.Context, postID uuid.UUID, authorID *uuid.UUID, tokens []string) ([]models.Comment, error)
	ListUnapproved(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Comment, error)
	CountUnapproved(ctx context.Context) (int64, error)
	HasApprovedByAuthor(ctx context.Context, authorID uuid.UUID) (bool, error)
}

// Repository is the GORM-backed store for posts and comments.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a blog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// FindPostByID loads one post by id.
func (r *Repository) FindPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// FindPostBySlug loads one post by slug.
func (r *Repository) FindPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// SlugExists reports whether any post already claims the slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPublished returns published posts newest first, keyset paginated.
func (r *Repository) ListPublished(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Post, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.PostStatusPublished).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Post
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PublishTx flips the post to published inside the caller's transaction.
func (r *Repository) PublishTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("status", enums.PostStatusPublished).Error
}

// CountByStatus counts posts in the given status.
func (r *Repository) CountByStatus(ctx context.Context, status enums.PostStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// ListByStatus returns the newest posts in the given status.
func (r *Repository) ListByStatus(ctx context.Context, status enums.PostStatus, limit int) ([]models.Post, error) {
	var rows []models.Post
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateComment inserts a new comment.
func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// FindCommentByID loads one comment by id.
func (r *Repository) FindCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateComment saves the provided comment.
func (r *Repository) UpdateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes the comment by id.
func (r *Repository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}

// ListVisibleForPost returns a post's comments oldest first: everything
// approved plus the requester's own unapproved ones.
func (r *Repository) ListVisibleForPost(ctx context.Context, postID uuid.UUID, authorID *uuid.UUID, tokens []string) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).Where("post_id = ?", postID)

	visible := r.db.Where("approved = ?", true)
	if authorID != nil {
		visible = visible.Or("author_id = ?", *authorID)
	}
	if len(tokens) > 0 {
		visible = visible.Or("session_token IN ?", tokens)
	}
	query = query.Where(visible)

	var rows []models.Comment
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListUnapproved returns the moderation queue oldest first, keyset paginated.
func (r *Repository) ListUnapproved(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).
		Where("approved = ?", false).
		Order("created_at ASC, id ASC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Comment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountUnapproved counts comments awaiting moderation.
func (r *Repository) CountUnapproved(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("approved = ?", false).
		Count(&count).Error
	return count, err
}

// HasApprovedByAuthor reports whether the author has at least one approved comment.
func (r *Repository) HasApprovedByAuthor(ctx context.Context, authorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("author_id = ? AND approved = ?", authorID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
