// Package service holds the blog's use cases on top of the repositories.
package service

import (
	"context"
	"io"
	"log/slog"

	"yatube/internal/media"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/paginator"
	"yatube/internal/repository"
)

// FeedPage is one page of a post listing.
type FeedPage struct {
	Posts []*models.Post
	Page  paginator.Page
}

// ImageUpload is an uploaded file as received from the client.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	storage   media.Storage
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    *ImageUpload
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Text    string
	GroupID *uint
	Image   *ImageUpload
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	storage media.Storage,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		storage:   storage,
	}
}

// Feed returns the requested page of posts matching filter, newest first.
// Pages past the end resolve to the last page.
func (s *PostService) Feed(ctx context.Context, filter repository.PostFilter, requestedPage int) (*FeedPage, error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "Feed",
		observability.AttrFeed.String(feedKind(filter)),
		observability.AttrPageWanted.Int(requestedPage),
	)
	defer span.End()

	total, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	page := paginator.New(total, requestedPage, paginator.PerPage)

	posts := []*models.Post{}
	if total > 0 {
		posts, err = s.postRepo.List(ctx, filter, page.Limit(), page.Offset())
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	span.SetAttributes(observability.AttrPageServed.Int(page.Number), observability.AttrPostsTotal.Int64(total))
	return &FeedPage{Posts: posts, Page: page}, nil
}

func feedKind(filter repository.PostFilter) string {
	switch {
	case filter.GroupID != nil:
		return "group"
	case filter.AuthorID != nil:
		return "profile"
	case filter.FollowerID != nil:
		return "follow"
	default:
		return "index"
	}
}

// GroupFeed lists a group's posts; an unknown slug is NOT_FOUND.
func (s *PostService) GroupFeed(ctx context.Context, slug string, requestedPage int) (*models.Group, *FeedPage, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	feed, err := s.Feed(ctx, repository.PostFilter{GroupID: &group.ID}, requestedPage)
	if err != nil {
		return nil, nil, err
	}
	return group, feed, nil
}

// ProfileFeed lists an author's posts; an unknown username is NOT_FOUND.
func (s *PostService) ProfileFeed(ctx context.Context, username string, requestedPage int) (*models.User, *FeedPage, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if author == nil {
		return nil, nil, models.NewNotFoundError("User", username)
	}
	feed, err := s.Feed(ctx, repository.PostFilter{AuthorID: &author.ID}, requestedPage)
	if err != nil {
		return nil, nil, err
	}
	return author, feed, nil
}

// FollowFeed lists posts by every author userID follows.
func (s *PostService) FollowFeed(ctx context.Context, userID uint, requestedPage int) (*FeedPage, error) {
	return s.Feed(ctx, repository.PostFilter{FollowerID: &userID}, requestedPage)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// AuthorPostCount is the number of posts authorID has published.
func (s *PostService) AuthorPostCount(ctx context.Context, authorID uint) (int64, error) {
	return s.postRepo.Count(ctx, repository.PostFilter{AuthorID: &authorID})
}

// Groups lists the choices offered by the post form.
func (s *PostService) Groups(ctx context.Context) ([]*models.Group, error) {
	return s.groupRepo.List(ctx)
}

// CanEdit reports whether userID authored post.
func CanEdit(post *models.Post, userID uint) bool {
	return post != nil && userID != 0 && post.AuthorID == userID
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "CreatePost",
		observability.AttrAuthor.Int64(int64(in.AuthorID)))
	defer span.End()

	post := &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
	}

	if in.Image != nil {
		key, err := s.saveImage(ctx, in.Image)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		post.Image = key
		span.SetAttributes(observability.AttrImageStored.String(key))
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		span.RecordError(err)
		s.discardImage(ctx, post.Image)
		return nil, err
	}
	span.SetAttributes(observability.AttrPostID.Int64(int64(post.ID)))

	observability.ContentCreated.WithLabelValues("post").Inc()
	middleware.Logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Uint64("author_id", uint64(post.AuthorID)),
	)
	return post, nil
}

// UpdatePost changes text, group and optionally the image of a post the caller authored.
// Anyone else gets FORBIDDEN and nothing is written.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(post, in.UserID) {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}

	previousImage := post.Image
	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil

	if in.Image != nil {
		key, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.Image != previousImage {
			s.discardImage(ctx, post.Image)
		}
		return nil, err
	}
	if post.Image != previousImage {
		s.discardImage(ctx, previousImage)
	}

	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes a post the caller authored together with its comments and image.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(post, userID) {
		return nil, models.NewForbiddenError("Only the author can delete this post")
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return nil, err
	}
	s.discardImage(ctx, post.Image)
	return post, nil
}

func (s *PostService) saveImage(ctx context.Context, img *ImageUpload) (string, error) {
	key, err := s.storage.Write(ctx, media.PostImageKey(img.Filename), img.Content)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

func (s *PostService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove post image",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
