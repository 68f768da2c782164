package seed

import (
	"context"
	"fmt"
	"log"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// Options configure the seeder.
type Options struct {
	NumUsers       int
	NumPosts       int
	NumComments    int
	FollowsPerUser int
	// FastHash hashes the shared password with bcrypt.MinCost.
	FastHash  bool
	DryRun    bool
	BatchSize int
	// MaxDays bounds how far back post dates are spread.
	MaxDays  int
	RandSeed int64
}

// DefaultOptions is a small but browsable demo site.
func DefaultOptions() Options {
	return Options{
		NumUsers:       20,
		NumPosts:       150,
		NumComments:    300,
		FollowsPerUser: 4,
		BatchSize:      100,
		MaxDays:        90,
	}
}

// Result summarizes a seeding run.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seeder fills a database with demo users, posts, comments and follows.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, opts: opts, factory: f}, nil
}

// ClearAll deletes every row of the domain tables, children first. Groups are kept.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.opts.DryRun {
		log.Println("[dry-run] ClearAll skipped")
		return nil
	}
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds users, their follow graph, posts spread over the existing groups and
// comments. Groups must already exist; see Groups.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	users, err := s.SeedUsers(s.opts.NumUsers)
	if err != nil {
		return nil, err
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", res.Users)

	if res.Follows, err = s.SeedFollows(users, s.opts.FollowsPerUser); err != nil {
		return nil, err
	}
	log.Printf("✓ %d follows created", res.Follows)

	posts, err := s.SeedPosts(users, groups, s.opts.NumPosts)
	if err != nil {
		return nil, err
	}
	res.Posts = len(posts)
	log.Printf("✓ %d posts created", res.Posts)

	if res.Comments, err = s.SeedComments(users, posts, s.opts.NumComments); err != nil {
		return nil, err
	}
	log.Printf("✓ %d comments created", res.Comments)

	return res, nil
}

// SeedUsers creates n users sharing DefaultPassword.
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			// Generated usernames can collide; skip and carry on.
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, u)
	}
	if n > 0 && len(users) == 0 {
		return nil, fmt.Errorf("no users could be created")
	}
	return users, nil
}

// SeedFollows makes each user follow up to perUser random other users.
func (s *Seeder) SeedFollows(users []*models.User, perUser int) (int, error) {
	if len(users) < 2 || perUser <= 0 {
		return 0, nil
	}
	created := 0
	for _, u := range users {
		picked := map[uint]bool{u.ID: true}
		for attempts := 0; len(picked)-1 < perUser && attempts < perUser*4; attempts++ {
			author := users[s.factory.faker.Number(0, len(users)-1)]
			if picked[author.ID] {
				continue
			}
			picked[author.ID] = true
			if err := s.factory.CreateFollow(u, author); err != nil {
				return created, fmt.Errorf("follow %s -> %s: %w", u.Username, author.Username, err)
			}
			created++
		}
	}
	return created, nil
}

// SeedPosts creates n posts by random users. About a third have no group.
func (s *Seeder) SeedPosts(users []*models.User, groups []models.Group, n int) ([]*models.Post, error) {
	if len(users) == 0 || n <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.factory.faker.Number(0, len(users)-1)]
		var group *models.Group
		if len(groups) > 0 && s.factory.faker.Number(0, 2) > 0 {
			group = &groups[s.factory.faker.Number(0, len(groups)-1)]
		}
		posts = append(posts, s.factory.BuildPost(author, group))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

// SeedComments adds n comments by random users on random posts.
func (s *Seeder) SeedComments(users []*models.User, posts []*models.Post, n int) (int, error) {
	if len(users) == 0 || len(posts) == 0 {
		return 0, nil
	}
	for i := 0; i < n; i++ {
		author := users[s.factory.faker.Number(0, len(users)-1)]
		post := posts[s.factory.faker.Number(0, len(posts)-1)]
		if _, err := s.factory.CreateComment(author, post); err != nil {
			return i, fmt.Errorf("create comment: %w", err)
		}
	}
	return n, nil
}
