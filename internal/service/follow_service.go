package service

import (
	"context"

	"yatube/internal/middleware"
	"yatube/internal/repository"
)

// FollowService manages reader → author subscriptions.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// Follow subscribes the viewer to username. Following yourself or an author you
// already follow does nothing.
func (s *FollowService) Follow(ctx context.Context, viewerID uint, username string) error {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if author.ID == viewerID {
		return nil
	}

	created, err := s.followRepo.Create(ctx, viewerID, author.ID)
	if err != nil {
		return err
	}
	if created {
		middleware.FollowEvents.WithLabelValues("follow").Inc()
	}
	return nil
}

// Unfollow removes the subscription, returning NotFound when there is none.
func (s *FollowService) Unfollow(ctx context.Context, viewerID uint, username string) error {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.followRepo.Delete(ctx, viewerID, author.ID); err != nil {
		return err
	}
	middleware.FollowEvents.WithLabelValues("unfollow").Inc()
	return nil
}

// IsFollowing reports whether viewerID follows authorID.
func (s *FollowService) IsFollowing(ctx context.Context, viewerID, authorID uint) (bool, error) {
	if viewerID == 0 || viewerID == authorID {
		return false, nil
	}
	return s.followRepo.Exists(ctx, viewerID, authorID)
}
