package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/pagination"
	"gorm.io/gorm"
)

// CreatePostInput carries the fields a blogger submits for a new draft.
type CreatePostInput struct {
	Title            string
	Content          string
	Excerpt          string
	FeaturedImageURL *string
}

// AddCommentInput carries a new comment. Name is required for guests.
type AddCommentInput struct {
	Name      string
	Email     *string
	Content   string
	IPAddress *string
}

// Service exposes the blog operations.
type Service interface {
	CreatePost(ctx context.Context, actor identity.Identity, input CreatePostInput) (*PostDTO, error)
	ListPublished(ctx context.Context, params pagination.Params) (*PostPage, error)
	GetPost(ctx context.Context, actor identity.Identity, slug string) (*PostDetailDTO, error)
	AddComment(ctx context.Context, actor identity.Identity, slug string, input AddCommentInput) (*CommentDTO, error)
	UpdateComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID, content string) (*CommentDTO, error)
	DeleteComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID) error
	ApproveComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID) (*CommentDTO, error)
	ListPendingComments(ctx context.Context, actor identity.Identity, params pagination.Params) (*CommentPage, error)
}

type service struct {
	posts    PostRepository
	comments CommentRepository
	logg     *logger.Logger
}

// NewService constructs the blog service.
func NewService(posts PostRepository, comments CommentRepository, logg *logger.Logger) (Service, error) {
	if posts == nil {
		return nil, fmt.Errorf("post repository is required")
	}
	if comments == nil {
		return nil, fmt.Errorf("comment repository is required")
	}
	return &service{posts: posts, comments: comments, logg: logg}, nil
}

// CreatePost stores a new draft for the acting blogger.
func (s *service) CreatePost(ctx context.Context, actor identity.Identity, input CreatePostInput) (*PostDTO, error) {
	if !actor.IsBlogger() && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only bloggers can create posts")
	}

	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}

	slug, err := uniqueSlug(ctx, s.posts, title)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate slug")
	}

	post := &models.Post{
		AuthorID:         actor.UserID,
		Title:            title,
		Content:          content,
		Slug:             slug,
		Excerpt:          strings.TrimSpace(input.Excerpt),
		FeaturedImageURL: input.FeaturedImageURL,
		Status:           enums.PostStatusDraft,
	}
	created, err := s.posts.CreatePost(ctx, post)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create post")
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"post_id": created.ID.String(), "slug": created.Slug})
		s.logg.Info(lctx, "draft post created")
	}
	dto := postFromModel(created, true)
	return &dto, nil
}

// ListPublished returns one page of published posts, newest first.
func (s *service) ListPublished(ctx context.Context, params pagination.Params) (*PostPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.posts.ListPublished(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list published posts")
	}

	page, next := pagination.TrimToPage(rows, params.Limit, func(p models.Post) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	posts := make([]PostDTO, 0, len(page))
	for i := range page {
		posts = append(posts, postFromModel(&page[i], false))
	}
	return &PostPage{Posts: posts, NextCursor: next}, nil
}

// GetPost returns the post plus the comments visible to the requester:
// approved ones and the requester's own. Drafts are only visible to their
// author and staff.
func (s *service) GetPost(ctx context.Context, actor identity.Identity, slug string) (*PostDetailDTO, error) {
	post, err := s.findPost(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post.Status != enums.PostStatusPublished && !s.canSeeDraft(actor, post) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}

	comments, err := s.comments.ListVisibleForPost(ctx, post.ID, actor.UserID, actor.CandidateTokens())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list comments")
	}

	return &PostDetailDTO{
		Post:     postFromModel(post, true),
		Comments: commentsFromModels(comments),
	}, nil
}

// AddComment creates a comment on a published post. Authenticated authors
// with a prior approved comment are trusted and skip moderation; everyone
// else starts unapproved.
func (s *service) AddComment(ctx context.Context, actor identity.Identity, slug string, input AddCommentInput) (*CommentDTO, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}

	post, err := s.findPost(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post.Status != enums.PostStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}

	comment := &models.Comment{
		PostID:    post.ID,
		Name:      strings.TrimSpace(input.Name),
		Email:     input.Email,
		Content:   content,
		IPAddress: input.IPAddress,
	}

	if actor.IsAuthenticated() {
		comment.AuthorID = actor.UserID
		trusted, err := s.comments.HasApprovedByAuthor(ctx, *actor.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check comment history")
		}
		comment.Approved = trusted
	} else {
		tokens := actor.CandidateTokens()
		if len(tokens) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "a guest token is required to comment")
		}
		if comment.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		token := tokens[0]
		comment.SessionToken = &token
	}

	created, err := s.comments.CreateComment(ctx, comment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create comment")
	}
	dto := commentFromModel(created)
	return &dto, nil
}

// UpdateComment edits the body. Any edit by a non-staff actor sends the
// comment back through moderation.
func (s *service) UpdateComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID, content string) (*CommentDTO, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}

	comment, err := s.ownedComment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if !actor.IsStaff() {
		comment.Approved = false
	}
	updated, err := s.comments.UpdateComment(ctx, comment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update comment")
	}
	dto := commentFromModel(updated)
	return &dto, nil
}

// DeleteComment removes the comment if the actor may manage it.
func (s *service) DeleteComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID) error {
	comment, err := s.ownedComment(ctx, actor, commentID)
	if err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, comment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete comment")
	}
	return nil
}

// ApproveComment is the staff moderation action.
func (s *service) ApproveComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID) (*CommentDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	comment, err := s.comments.FindCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load comment")
	}
	if comment.Approved {
		dto := commentFromModel(comment)
		return &dto, nil
	}
	comment.Approved = true
	updated, err := s.comments.UpdateComment(ctx, comment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve comment")
	}
	dto := commentFromModel(updated)
	return &dto, nil
}

// ListPendingComments returns the moderation queue for staff, oldest first.
func (s *service) ListPendingComments(ctx context.Context, actor identity.Identity, params pagination.Params) (*CommentPage, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.comments.ListUnapproved(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending comments")
	}
	page, next := pagination.TrimToPage(rows, params.Limit, func(c models.Comment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &CommentPage{Comments: commentsFromModels(page), NextCursor: next}, nil
}

func (s *service) findPost(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.posts.FindPostBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load post")
	}
	return post, nil
}

func (s *service) canSeeDraft(actor identity.Identity, post *models.Post) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.IsAuthenticated() && post.AuthorID != nil && *post.AuthorID == *actor.UserID
}

// ownedComment loads the comment and enforces the management rule: staff,
// the exact authenticated author, or a guest presenting the stored token.
func (s *service) ownedComment(ctx context.Context, actor identity.Identity, commentID uuid.UUID) (*models.Comment, error) {
	comment, err := s.comments.FindCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load comment")
	}

	if actor.IsStaff() {
		return comment, nil
	}
	if comment.AuthorID != nil {
		if actor.IsAuthenticated() && *comment.AuthorID == *actor.UserID {
			return comment, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot manage this comment")
	}
	if comment.SessionToken != nil && actor.MatchesToken(*comment.SessionToken) {
		return comment, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot manage this comment")
}
