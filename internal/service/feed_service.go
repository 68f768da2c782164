package service

import (
	"context"
	"strconv"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultPostsOnPage   = 10
	DefaultIndexCacheTTL = 20 * time.Second
)

// Page is one slice of a newest-first post listing.
type Page struct {
	Number     int            `json:"number"`
	Size       int            `json:"size"`
	TotalItems int64          `json:"total_items"`
	TotalPages int            `json:"total_pages"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
	Items      []*models.Post `json:"items"`
}

// PrevNumber and NextNumber are used by the paginator template.
func (p *Page) PrevNumber() int { return p.Number - 1 }
func (p *Page) NextNumber() int { return p.Number + 1 }

// Numbers lists every page number, for the paginator.
func (p *Page) Numbers() []int {
	nums := make([]int, p.TotalPages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

func newPage(number, size int, total int64, items []*models.Post) *Page {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	if items == nil {
		items = []*models.Post{}
	}
	return &Page{
		Number:     number,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
		HasPrev:    number > 1 && totalPages > 0,
		HasNext:    number < totalPages,
		Items:      items,
	}
}

// ParsePageNumber reads a ?page= value. Anything that is not a positive integer is page 1.
func ParsePageNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// AuthorFeed is a profile page: the author, their posts and the viewer's relation to them.
type AuthorFeed struct {
	Author    *models.User
	Following bool
	PostCount int64
	Page      *Page
}

// FeedService serves the read side: index, group, profile and follow feeds.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	store      cache.Store
	pageSize   int
	indexTTL   time.Duration
}

func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	store cache.Store,
	cfg *config.Config,
) *FeedService {
	pageSize := DefaultPostsOnPage
	indexTTL := DefaultIndexCacheTTL
	if cfg != nil {
		if cfg.PostsOnPage > 0 {
			pageSize = cfg.PostsOnPage
		}
		if cfg.IndexCacheTTLSeconds > 0 {
			indexTTL = cfg.IndexCacheTTL()
		}
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		store:      store,
		pageSize:   pageSize,
		indexTTL:   indexTTL,
	}
}

// PageSize is the number of posts per page.
func (s *FeedService) PageSize() int {
	return s.pageSize
}

func (s *FeedService) list(ctx context.Context, filter repository.PostFilter, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	posts, total, err := s.postRepo.List(ctx, filter, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	return newPage(page, s.pageSize, total, posts), nil
}

// ListAll returns a page of every post. Pages are cached for the index TTL.
func (s *FeedService) ListAll(ctx context.Context, page int) (result *Page, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "FeedService.ListAll", attribute.Int("page", page))
	defer func() { observability.EndSpan(span, err) }()

	if page < 1 {
		page = 1
	}
	var cached Page
	err = cache.Aside(ctx, s.store, cache.IndexPageKey(page), &cached, s.indexTTL, func() error {
		p, fetchErr := s.list(ctx, repository.PostFilter{}, page)
		if fetchErr != nil {
			return fetchErr
		}
		cached = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cached.Items == nil {
		cached.Items = []*models.Post{}
	}
	return &cached, nil
}

// ListByGroup returns the group identified by slug and a page of its posts.
func (s *FeedService) ListByGroup(ctx context.Context, slug string, page int) (group *models.Group, result *Page, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "FeedService.ListByGroup", attribute.String("group.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	group, err = s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	result, err = s.list(ctx, repository.PostFilter{GroupID: group.ID}, page)
	if err != nil {
		return nil, nil, err
	}
	return group, result, nil
}

// ListByAuthor builds the profile feed. viewerID 0 means an anonymous visitor.
func (s *FeedService) ListByAuthor(ctx context.Context, username string, viewerID uint, page int) (feed *AuthorFeed, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "FeedService.ListByAuthor", attribute.String("author", username))
	defer func() { observability.EndSpan(span, err) }()

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	result, err := s.list(ctx, repository.PostFilter{AuthorID: author.ID}, page)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != 0 && viewerID != author.ID {
		following, err = s.followRepo.Exists(ctx, viewerID, author.ID)
		if err != nil {
			return nil, err
		}
	}

	return &AuthorFeed{
		Author:    author,
		Following: following,
		PostCount: result.TotalItems,
		Page:      result,
	}, nil
}

// ListFollowed returns posts by authors the viewer follows.
func (s *FeedService) ListFollowed(ctx context.Context, viewerID uint, page int) (result *Page, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "FeedService.ListFollowed")
	defer func() { observability.EndSpan(span, err) }()

	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}
	return s.list(ctx, repository.PostFilter{FollowerID: viewerID}, page)
}

// InvalidateIndex drops every cached index page.
func (s *FeedService) InvalidateIndex(ctx context.Context) {
	invalidateIndex(ctx, s.store)
}

func invalidateIndex(ctx context.Context, store cache.Store) {
	if store == nil {
		return
	}
	if err := store.DeletePrefix(ctx, cache.IndexPagePrefix); err != nil {
		middleware.Logger.WarnContext(ctx, "index cache invalidation failed", "error", err.Error())
	}
}
