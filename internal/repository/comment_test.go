package repository

import (
	"testing"
	"time"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListByPostNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	author := createUser(t, db, "leo")
	post := createPosts(t, db, author, nil, 1)[0]
	otherPost := createPosts(t, db, author, nil, 1)[0]

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"old", "new"} {
		c := &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx(), c))
	}
	require.NoError(t, repo.Create(ctx(), &models.Comment{PostID: otherPost.ID, AuthorID: author.ID, Text: "elsewhere"}))

	comments, err := repo.ListByPost(ctx(), post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "new", comments[0].Text)
	assert.Equal(t, "old", comments[1].Text)
	assert.Equal(t, "leo", comments[0].Author.Username)

	empty, err := repo.ListByPost(ctx(), 12345)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCommentRepository_GetAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	author := createUser(t, db, "leo")
	post := createPosts(t, db, author, nil, 1)[0]

	c := &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "hi"}
	require.NoError(t, repo.Create(ctx(), c))

	got, err := repo.GetByID(ctx(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)

	require.NoError(t, repo.Delete(ctx(), c.ID))
	assert.True(t, models.IsNotFound(repo.Delete(ctx(), c.ID)))
}

func TestCommentRepository_RejectsUnknownPost(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	author := createUser(t, db, "leo")

	err := repo.Create(ctx(), &models.Comment{PostID: 999, AuthorID: author.ID, Text: "orphan"})
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
}
