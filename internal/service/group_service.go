package service

import (
	"context"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// GroupService is the administrator's side of groups.
type GroupService struct {
	groupRepo repository.GroupRepository
	store     cache.Store
}

type CreateGroupInput struct {
	Title       string
	Slug        string
	Description string
}

func NewGroupService(groupRepo repository.GroupRepository, store cache.Store) *GroupService {
	return &GroupService{groupRepo: groupRepo, store: store}
}

func (in CreateGroupInput) validate() (*models.Group, error) {
	g := &models.Group{
		Title:       strings.TrimSpace(in.Title),
		Slug:        strings.TrimSpace(in.Slug),
		Description: strings.TrimSpace(in.Description),
	}
	if err := validation.ValidateTitle(g.Title); err != nil {
		return nil, models.NewFieldValidationError("title", err.Error())
	}
	if err := validation.ValidateSlug(g.Slug); err != nil {
		return nil, models.NewFieldValidationError("slug", err.Error())
	}
	return g, nil
}

// CreateGroup adds a group; the slug must be new.
func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	g, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.groupRepo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// EnsureGroup creates the group or refreshes its title and description.
func (s *GroupService) EnsureGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	g, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.groupRepo.Upsert(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

// DeleteGroup removes the group. Its posts stay, without a group.
func (s *GroupService) DeleteGroup(ctx context.Context, slug string) error {
	g, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.groupRepo.Delete(ctx, g.ID); err != nil {
		return err
	}
	invalidateIndex(ctx, s.store)
	return nil
}
