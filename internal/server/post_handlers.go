package server

import (
	"fmt"
	"mime/multipart"

	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/paginator"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index lists every post, newest first. The route is wrapped by the page cache.
func (s *Server) Index(c *fiber.Ctx) error {
	feed, err := s.postService.Feed(c.UserContext(), repository.PostFilter{}, paginator.ParsePage(c.Query("page")))
	if err != nil {
		return err
	}
	return s.render(c, "posts/index", fiber.Map{
		"Title": "Latest updates",
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}

// GroupPosts lists the posts of one group.
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, feed, err := s.postService.GroupFeed(c.UserContext(), c.Params("slug"), paginator.ParsePage(c.Query("page")))
	if err != nil {
		return err
	}
	return s.render(c, "posts/group_list", fiber.Map{
		"Title": group.Title,
		"Group": group,
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}

// Profile lists an author's posts with their follower counts and, for a
// signed-in visitor, whether they follow the author.
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, feed, err := s.postService.ProfileFeed(ctx, c.Params("username"), paginator.ParsePage(c.Query("page")))
	if err != nil {
		return err
	}
	viewerID := currentUserID(c)
	stats, err := s.followService.Stats(ctx, viewerID, author.ID)
	if err != nil {
		return err
	}
	return s.render(c, "posts/profile", fiber.Map{
		"Title":  "Profile of " + author.FullName(),
		"Author": author,
		"Posts":  feed.Posts,
		"Page":   feed.Page,
		"Stats":  stats,
		"IsSelf": viewerID == author.ID,
	})
}

// PostDetail shows one post with its comments and an empty comment form.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	return s.renderPostDetail(c, id, forms.NewCommentForm())
}

func (s *Server) renderPostDetail(c *fiber.Ctx, id uint, form *forms.CommentForm) error {
	ctx := c.UserContext()
	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return err
	}
	comments, err := s.commentService.ListComments(ctx, post.ID)
	if err != nil {
		return err
	}
	count, err := s.postService.AuthorPostCount(ctx, post.AuthorID)
	if err != nil {
		return err
	}
	return s.render(c, "posts/post_detail", fiber.Map{
		"Title":            "Post " + post.String(),
		"Post":             post,
		"Comments":         comments,
		"CommentForm":      form,
		"AuthorPostsCount": count,
		"CanEdit":          service.CanEdit(post, currentUserID(c)),
	})
}

// PostCreatePage shows an empty post form.
func (s *Server) PostCreatePage(c *fiber.Ctx) error {
	return s.renderPostForm(c, forms.NewPostForm(nil), nil)
}

// PostCreate publishes a post as the current user and redirects to their profile.
func (s *Server) PostCreate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)

	form := forms.BindPostForm(c)
	ok, err := form.Validate(ctx, s.groupRepo)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderPostForm(c, form, nil)
	}

	image, closeImage, err := openUpload(form.Image)
	if err != nil {
		return err
	}
	defer closeImage()

	if _, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		AuthorID: user.ID,
		Text:     form.Text,
		GroupID:  form.GroupID(),
		Image:    image,
	}); err != nil {
		return err
	}
	return c.Redirect(profileURL(user.Username), fiber.StatusFound)
}

// PostEditPage shows the post form prefilled; anyone but the author is sent
// back to the post.
func (s *Server) PostEditPage(c *fiber.Ctx) error {
	post, err := s.editablePost(c)
	if err != nil || post == nil {
		return err
	}
	return s.renderPostForm(c, forms.NewPostForm(post), post)
}

// PostEdit saves the author's changes and redirects to the post.
func (s *Server) PostEdit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	post, err := s.editablePost(c)
	if err != nil || post == nil {
		return err
	}

	form := forms.BindPostForm(c)
	ok, err := form.Validate(ctx, s.groupRepo)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderPostForm(c, form, post)
	}

	image, closeImage, err := openUpload(form.Image)
	if err != nil {
		return err
	}
	defer closeImage()

	_, err = s.postService.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  post.ID,
		Text:    form.Text,
		GroupID: form.GroupID(),
		Image:   image,
	})
	if err != nil && !models.HasCode(err, models.CodeForbidden) {
		return err
	}
	return c.Redirect(postURL(post.ID), fiber.StatusFound)
}

// PostDelete removes the author's post and returns to their profile.
func (s *Server) PostDelete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user := currentUser(c)
	if _, err := s.postService.DeletePost(c.UserContext(), user.ID, id); err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(id), fiber.StatusFound)
		}
		return err
	}
	return c.Redirect(profileURL(user.Username), fiber.StatusFound)
}

// editablePost loads the post named by the route. When the caller is not the
// author it has already redirected and returns a nil post.
func (s *Server) editablePost(c *fiber.Ctx) (*models.Post, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !service.CanEdit(post, currentUserID(c)) {
		return nil, c.Redirect(postURL(post.ID), fiber.StatusFound)
	}
	return post, nil
}

func (s *Server) renderPostForm(c *fiber.Ctx, form *forms.PostForm, post *models.Post) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	data := fiber.Map{
		"Title":  "New post",
		"Form":   form,
		"Groups": groups,
		"IsEdit": post != nil,
	}
	if post != nil {
		data["Title"] = "Edit post"
		data["PostID"] = post.ID
		data["CurrentImage"] = post.Image
	}
	return s.render(c, "posts/create_post", data)
}

// AddComment stores a comment under a post. An invalid form re-renders the
// post page with the errors.
func (s *Server) AddComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.postService.GetPost(ctx, id); err != nil {
		return err
	}

	form := forms.BindCommentForm(c)
	if !form.Validate() {
		return s.renderPostDetail(c, id, form)
	}

	if _, err := s.commentService.AddComment(ctx, service.CreateCommentInput{
		PostID:   id,
		AuthorID: currentUserID(c),
		Text:     form.Text,
	}); err != nil {
		return err
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

// FollowIndex lists posts by the authors the current user follows.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	feed, err := s.postService.FollowFeed(c.UserContext(), currentUserID(c), paginator.ParsePage(c.Query("page")))
	if err != nil {
		return err
	}
	return s.render(c, "posts/follow", fiber.Map{
		"Title": "Subscriptions",
		"Posts": feed.Posts,
		"Page":  feed.Page,
	})
}

// ProfileFollow subscribes to an author and returns to their profile.
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// ProfileUnfollow drops the subscription and returns to the profile.
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// openUpload opens an uploaded file for the post service. The returned func
// closes it and is always safe to call.
func openUpload(fh *multipart.FileHeader) (*service.ImageUpload, func(), error) {
	if fh == nil {
		return nil, func() {}, nil
	}
	file, err := fh.Open()
	if err != nil {
		return nil, func() {}, models.NewInternalError(err)
	}
	return &service.ImageUpload{Filename: fh.Filename, Content: file}, func() { _ = file.Close() }, nil
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}
