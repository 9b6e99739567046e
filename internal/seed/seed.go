// Package seed fills a database with demo content for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yatube/internal/auth"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "yatube-demo-123"

// Options control how much content is generated.
type Options struct {
	Users           int
	Groups          int
	PostsPerUser    int
	CommentsPerPost int
	FollowsPerUser  int
	// MaxDays spreads post dates over this many days before now.
	MaxDays int
}

// DefaultOptions is a small but browsable data set.
func DefaultOptions() Options {
	return Options{
		Users:           10,
		Groups:          4,
		PostsPerUser:    8,
		CommentsPerPost: 2,
		FollowsPerUser:  3,
		MaxDays:         60,
	}
}

// Summary counts what Run created.
type Summary struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seeder writes generated records through the repositories.
type Seeder struct {
	db       *gorm.DB
	faker    *gofakeit.Faker
	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	now      func() time.Time
}

// NewSeeder returns a Seeder; the same randomSeed yields the same content.
func NewSeeder(db *gorm.DB, randomSeed int64) *Seeder {
	return &Seeder{
		db:       db,
		faker:    gofakeit.New(randomSeed),
		users:    repository.NewUserRepository(db),
		groups:   repository.NewGroupRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
		now:      time.Now,
	}
}

// ClearAll removes every blog record, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, model := range []interface{}{&models.Follow{}, &models.Comment{}, &models.Post{}, &models.Group{}, &models.User{}} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run generates users, groups, posts, comments and follows.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{}

	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u := &models.User{
			Username:  fmt.Sprintf("%s%d", sanitizeUsername(s.faker.Username()), i+1),
			Email:     fmt.Sprintf("user%d@%s", i+1, s.faker.DomainName()),
			Password:  hash,
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	groups := make([]*models.Group, 0, opts.Groups)
	for i := 0; i < opts.Groups; i++ {
		word := strings.ToLower(s.faker.Word())
		g := &models.Group{
			Title:       strings.ToUpper(word[:1]) + word[1:],
			Slug:        fmt.Sprintf("%s-%d", word, i+1),
			Description: s.faker.Sentence(12),
		}
		if err := s.groups.Create(ctx, g); err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
		groups = append(groups, g)
	}
	sum.Groups = len(groups)

	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	now := s.now()
	var posts []*models.Post
	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			p := &models.Post{
				Text:      s.faker.Paragraph(1, 3, 12, "\n"),
				AuthorID:  u.ID,
				CreatedAt: s.faker.DateRange(now.AddDate(0, 0, -maxDays), now),
			}
			// Roughly two in three posts belong to a group.
			if len(groups) > 0 && s.faker.Number(0, 2) > 0 {
				p.GroupID = &groups[s.faker.Number(0, len(groups)-1)].ID
			}
			if err := s.posts.Create(ctx, p); err != nil {
				return nil, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, p)
		}
	}
	sum.Posts = len(posts)

	if len(users) > 0 {
		for _, p := range posts {
			for i := 0; i < opts.CommentsPerPost; i++ {
				c := &models.Comment{
					PostID:   p.ID,
					AuthorID: users[s.faker.Number(0, len(users)-1)].ID,
					Text:     s.faker.Sentence(8),
				}
				if err := s.comments.Create(ctx, c); err != nil {
					return nil, fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}
		}
	}

	for _, u := range users {
		for i := 0; i < opts.FollowsPerUser && len(users) > 1; i++ {
			author := users[s.faker.Number(0, len(users)-1)]
			if author.ID == u.ID {
				continue
			}
			err := s.follows.Create(ctx, u.ID, author.ID)
			switch {
			case err == nil:
				sum.Follows++
			case errors.Is(err, repository.ErrAlreadyFollowing):
			default:
				return nil, fmt.Errorf("create follow: %w", err)
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", sum.Users),
		slog.Int("groups", sum.Groups),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}

// sanitizeUsername keeps the characters a username may contain.
func sanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', strings.ContainsRune("_.@+-", r):
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
