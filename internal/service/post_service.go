package service

import (
	"context"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostService handles post writes and the detail view.
type PostService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	commentRepo repository.CommentRepository
	images      ImageSaver
	store       cache.Store
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    *ImageUpload
}

type UpdatePostInput struct {
	PostID   uint
	EditorID uint
	Text     string
	GroupID  *uint
	// Image replaces the current image when set; nil keeps it.
	Image *ImageUpload
}

type DeletePostInput struct {
	PostID uint
	UserID uint
}

// PostDetail is everything the post page shows.
type PostDetail struct {
	Post            *models.Post
	Comments        []*models.Comment
	AuthorPostCount int64
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	commentRepo repository.CommentRepository,
	images ImageSaver,
	store cache.Store,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		commentRepo: commentRepo,
		images:      images,
		store:       store,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "PostService.CreatePost", attribute.Int("author.id", int(in.AuthorID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.NotBlank("text", in.Text); err != nil {
		return nil, models.NewFieldValidationError("text", err.Error())
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	post = &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
	}
	var stored StoredImage
	if in.Image != nil {
		if stored, err = s.saveImage(ctx, *in.Image); err != nil {
			return nil, err
		}
		post.Image = stored.Path
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(ctx, stored)
		return nil, err
	}
	middleware.ContentCreated.WithLabelValues("post").Inc()
	invalidateIndex(ctx, s.store)
	return post, nil
}

// UpdatePost edits a post in place. Only the author may edit; the creation time never changes.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "PostService.UpdatePost", attribute.Int("post.id", int(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.EditorID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	if err := validation.NotBlank("text", in.Text); err != nil {
		return nil, models.NewFieldValidationError("text", err.Error())
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil
	var stored StoredImage
	if in.Image != nil {
		if stored, err = s.saveImage(ctx, *in.Image); err != nil {
			return nil, err
		}
		post.Image = stored.Path
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.discardImage(ctx, stored)
		return nil, err
	}
	invalidateIndex(ctx, s.store)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "service", "PostService.DeletePost", attribute.Int("post.id", int(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.AuthorID != in.UserID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return err
	}
	invalidateIndex(ctx, s.store)
	return nil
}

// GetPost loads a post with its comments, newest first, and the author's post count.
func (s *PostService) GetPost(ctx context.Context, id uint) (detail *PostDetail, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "PostService.GetPost", attribute.Int("post.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments, AuthorPostCount: count}, nil
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.IsNotFound(err) {
			return models.NewFieldValidationError("group", "Select a valid choice. That choice is not one of the available choices.")
		}
		return err
	}
	return nil
}

func (s *PostService) saveImage(ctx context.Context, in ImageUpload) (StoredImage, error) {
	if s.images == nil {
		return StoredImage{}, models.NewFieldValidationError("image", "Image uploads are disabled")
	}
	return s.images.Save(ctx, in)
}

// discardImage removes a file written for a post that was never persisted.
// Files that existed before the upload may belong to other posts and stay.
func (s *PostService) discardImage(ctx context.Context, stored StoredImage) {
	if !stored.Created || stored.Path == "" {
		return
	}
	if err := s.images.Discard(ctx, stored.Path); err != nil {
		middleware.Logger.WarnContext(ctx, "orphaned post image not removed", "path", stored.Path, "error", err.Error())
	}
}
