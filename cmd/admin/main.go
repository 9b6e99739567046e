// Command admin provides maintenance utilities for Yatube.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"yatube/internal/bootstrap"
	"yatube/internal/models"
	"yatube/internal/pagecache"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin cache-clear                          - Drop every cached page")
	fmt.Println("  go run ./cmd/admin create-group <slug> <title> [desc]   - Create a group")
	fmt.Println("  go run ./cmd/admin list-groups                          - List all groups")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx := context.Background()
	defer rt.Close(ctx)

	switch os.Args[1] {
	case "cache-clear":
		clearCache(ctx, rt)
	case "create-group":
		if len(os.Args) < 4 {
			usage()
			os.Exit(1)
		}
		createGroup(ctx, rt, os.Args[2], os.Args[3], strings.Join(os.Args[4:], " "))
	case "list-groups":
		listGroups(ctx, rt)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func clearCache(ctx context.Context, rt *bootstrap.Runtime) {
	if rt.Redis == nil {
		// The in-process fallback store dies with each server process.
		fmt.Println("Redis is not reachable; nothing shared to clear")
		return
	}
	cfg := rt.Config
	pc := pagecache.New(pagecache.NewRedisStorage(rt.Redis, cfg.PageCachePrefix), cfg.PageCachePrefix, cfg.PageCacheTTL())
	if err := pc.Clear(ctx); err != nil {
		log.Fatalf("Failed to clear page cache: %v", err)
	}
	fmt.Printf("Cleared page cache %q\n", pc.Prefix())
}

func createGroup(ctx context.Context, rt *bootstrap.Runtime, slug, title, description string) {
	if err := validation.ValidateGroupSlug(slug); err != nil {
		log.Fatalf("Invalid slug: %v", err)
	}
	group := &models.Group{Slug: slug, Title: title, Description: description}
	if err := repository.NewGroupRepository(rt.DB).Create(ctx, group); err != nil {
		log.Fatalf("Failed to create group: %v", err)
	}
	fmt.Printf("Created group %s (ID: %d, slug: %s)\n", group.Title, group.ID, group.Slug)
}

func listGroups(ctx context.Context, rt *bootstrap.Runtime) {
	groups, err := repository.NewGroupRepository(rt.DB).List(ctx)
	if err != nil {
		log.Fatalf("Failed to list groups: %v", err)
	}
	if len(groups) == 0 {
		fmt.Println("No groups")
		return
	}
	for _, g := range groups {
		fmt.Printf("  %d\t%s\t%s\n", g.ID, g.Slug, g.Title)
	}
}
