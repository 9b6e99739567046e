// Command seed fills the database with demo users, groups and posts.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"yatube/internal/bootstrap"
	"yatube/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "Number of users to create")
	groups := flag.Int("groups", defaults.Groups, "Number of groups to create")
	posts := flag.Int("posts", defaults.PostsPerUser, "Posts per user")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Follow attempts per user")
	clean := flag.Bool("clean", false, "Delete all blog data before seeding")
	randomSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx := context.Background()
	defer rt.Close(ctx)

	s := seed.NewSeeder(rt.DB, *randomSeed)
	if *clean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, seed.Options{
		Users:           *users,
		Groups:          *groups,
		PostsPerUser:    *posts,
		CommentsPerPost: *comments,
		FollowsPerUser:  *follows,
		MaxDays:         defaults.MaxDays,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d groups, %d posts, %d comments, %d follows",
		sum.Users, sum.Groups, sum.Posts, sum.Comments, sum.Follows)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
