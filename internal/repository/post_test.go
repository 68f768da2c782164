package repository

import (
	"regexp"
	"testing"

	"yatube/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_ListPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	author := createUser(t, db, "leo")
	createPosts(t, db, author, nil, 13)

	tests := []struct {
		name     string
		offset   int
		wantLen  int
		wantText string
	}{
		{"first page is full", 0, 10, "post 12 by leo"},
		{"second page holds the remainder", 10, 3, "post 2 by leo"},
		{"out of range page is empty", 20, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, total, err := repo.List(ctx(), PostFilter{}, 10, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, int64(13), total)
			require.Len(t, posts, tt.wantLen)
			assert.NotNil(t, posts)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantText, posts[0].Text)
				assert.Equal(t, "leo", posts[0].Author.Username)
			}
		})
	}
}

func TestPostRepository_ListNewestFirstWithTies(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	author := createUser(t, db, "leo")
	posts := createPosts(t, db, author, nil, 2)
	// Same timestamp as the newest post; the higher id wins.
	tie := &models.Post{Text: "tie", AuthorID: author.ID, CreatedAt: posts[1].CreatedAt}
	require.NoError(t, db.Omit("Author", "Group").Create(tie).Error)

	got, _, err := repo.List(ctx(), PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uint{tie.ID, posts[1].ID, posts[0].ID}, []uint{got[0].ID, got[1].ID, got[2].ID})
}

func TestPostRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)

	leo := createUser(t, db, "leo")
	anna := createUser(t, db, "anna")
	reader := createUser(t, db, "reader")
	cats := createGroup(t, db, "cats")
	dogs := createGroup(t, db, "dogs")

	createPosts(t, db, leo, cats, 2)
	createPosts(t, db, anna, dogs, 3)
	createPosts(t, db, anna, nil, 1)
	require.NoError(t, db.Create(&models.Follow{UserID: reader.ID, AuthorID: leo.ID}).Error)

	t.Run("by group", func(t *testing.T) {
		posts, total, err := repo.List(ctx(), PostFilter{GroupID: cats.ID}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, p := range posts {
			require.NotNil(t, p.GroupID)
			assert.Equal(t, cats.ID, *p.GroupID)
			assert.Equal(t, "cats", p.Group.Slug)
		}
	})

	t.Run("by author", func(t *testing.T) {
		posts, total, err := repo.List(ctx(), PostFilter{AuthorID: anna.ID}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		for _, p := range posts {
			assert.Equal(t, anna.ID, p.AuthorID)
		}
	})

	t.Run("followed authors", func(t *testing.T) {
		posts, total, err := repo.List(ctx(), PostFilter{FollowerID: reader.ID}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, p := range posts {
			assert.Equal(t, leo.ID, p.AuthorID)
		}
	})

	t.Run("follows nobody", func(t *testing.T) {
		posts, total, err := repo.List(ctx(), PostFilter{FollowerID: leo.ID}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, posts)
	})

	n, err := repo.CountByAuthor(ctx(), anna.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestPostRepository_GetUpdateDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	author := createUser(t, db, "leo")
	cats := createGroup(t, db, "cats")
	post := createPosts(t, db, author, cats, 1)[0]
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "first"}).Error)

	got, err := repo.GetByID(ctx(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "cats", got.Group.Slug)
	assert.Equal(t, "leo", got.Author.Username)

	got.Text = "edited"
	got.GroupID = nil
	require.NoError(t, repo.Update(ctx(), got))

	reloaded, err := repo.GetByID(ctx(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", reloaded.Text)
	assert.Nil(t, reloaded.GroupID)
	assert.True(t, post.CreatedAt.Equal(reloaded.CreatedAt), "created_at must not change")

	require.NoError(t, repo.Delete(ctx(), post.ID))
	var comments int64
	db.Model(&models.Comment{}).Count(&comments)
	assert.Zero(t, comments)

	_, err = repo.GetByID(ctx(), post.ID)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(repo.Delete(ctx(), post.ID)))
	assert.True(t, models.IsNotFound(repo.Update(ctx(), &models.Post{ID: 999, Text: "x"})))
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{Text: "Hello", AuthorID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(ctx(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListFollowedSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts" WHERE posts.author_id IN \(SELECT .*author_id.* FROM "follows" WHERE user_id = \$1\)`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	posts, total, err := repo.List(ctx(), PostFilter{FollowerID: 5}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
