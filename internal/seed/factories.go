// Package seed creates demo data and the built-in groups. The factories are meant
// for development databases and tests only.
package seed

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	// password hash shared by every generated user
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, err
	}
	// RandSeed 0 gives a random seed.
	return &Factory{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed), hash: string(hash), nextID: 1000}, nil
}

// CreateUser constructs and persists a sample user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	user := &models.User{
		Username:  usernameFrom(first, last, f.faker.Number(10, 9999)),
		Password:  f.hash,
		FirstName: first,
		LastName:  last,
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9_.@+-]`)

func usernameFrom(first, last string, n int) string {
	name := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, n))
	return usernameUnsafe.ReplaceAllString(name, "")
}

// BuildPost constructs a post without persisting it. CreatedAt is spread over the
// last MaxDays days.
func (f *Factory) BuildPost(author *models.User, group *models.Group, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	ago := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute

	post := &models.Post{
		Text:      f.faker.Paragraph(f.faker.Number(1, 3), f.faker.Number(2, 5), 10, "\n\n"),
		AuthorID:  author.ID,
		CreatedAt: time.Now().Add(-ago),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in batches of BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.Omit("Author", "Group").CreateInBatches(posts, batch).Error
}

// CreateComment constructs and persists a sample comment on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		AuthorID:  author.ID,
		Text:      f.faker.Sentence(f.faker.Number(4, 16)),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute),
	}
	if now := time.Now(); comment.CreatedAt.After(now) {
		comment.CreatedAt = now
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Omit("Author").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow makes user follow author. Self-follows are skipped.
func (f *Factory) CreateFollow(user, author *models.User) error {
	if user.ID == author.ID || f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit("User", "Author").
		Create(&models.Follow{UserID: user.ID, AuthorID: author.ID}).Error
}
