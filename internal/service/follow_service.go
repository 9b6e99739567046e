package service

import (
	"context"
	"errors"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// ProfileStats is shown in the profile header.
type ProfileStats struct {
	Following      bool
	FollowersCount int64
	FollowingCount int64
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

func (s *FollowService) author(ctx context.Context, username string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return author, nil
}

// Follow subscribes userID to username. Following yourself or someone already
// followed is a silent no-op.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return author, nil
	}

	err = s.followRepo.Create(ctx, userID, author.ID)
	switch {
	case err == nil:
		observability.ContentCreated.WithLabelValues("follow").Inc()
	case errors.Is(err, repository.ErrAlreadyFollowing):
	default:
		return nil, err
	}
	return author, nil
}

// Unfollow removes the subscription if there is one.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.followRepo.Delete(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}

// Stats describes author's audience as seen by viewerID (0 for anonymous).
func (s *FollowService) Stats(ctx context.Context, viewerID, authorID uint) (*ProfileStats, error) {
	stats := &ProfileStats{}
	var err error

	if viewerID != 0 && viewerID != authorID {
		if stats.Following, err = s.followRepo.IsFollowing(ctx, viewerID, authorID); err != nil {
			return nil, err
		}
	}
	if stats.FollowersCount, err = s.followRepo.CountFollowers(ctx, authorID); err != nil {
		return nil, err
	}
	if stats.FollowingCount, err = s.followRepo.CountFollowing(ctx, authorID); err != nil {
		return nil, err
	}
	return stats, nil
}
