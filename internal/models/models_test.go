package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringForms(t *testing.T) {
	tests := []struct {
		name string
		in   fmt.Stringer
		want string
	}{
		{"group title", Group{Title: "Cats", Slug: "cats"}, "Cats"},
		{"short post", Post{Text: "hello"}, "hello"},
		{"long post truncated", Post{Text: "Тестовый пост длиннее пятнадцати"}, "Тестовый пост д"},
		{"comment truncated", Comment{Text: "0123456789abcdefghij"}, "0123456789abcde"},
		{"follow", Follow{User: User{Username: "reader"}, Author: User{Username: "writer"}}, "reader follows writer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Leo Tolstoy", User{Username: "leo", FirstName: "Leo", LastName: "Tolstoy"}.FullName())
	assert.Equal(t, "Leo", User{Username: "leo", FirstName: "Leo"}.FullName())
	assert.Equal(t, "leo", User{Username: "leo"}.FullName())
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NewNotFoundError("Post", 7))
	assert.Equal(t, CodeNotFound, ErrorCode(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.False(t, IsNotFound(nil))

	inner := errors.New("db down")
	appErr := NewInternalError(inner)
	assert.ErrorIs(t, appErr, inner)
	assert.Equal(t, "Internal server error: db down", appErr.Error())

	fieldErr := NewFieldValidationError("text", "required")
	assert.Equal(t, "text", fieldErr.Field)
	assert.Equal(t, CodeValidation, fieldErr.Code)
}
