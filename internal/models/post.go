package models

import "time"

// PreviewLength is the number of characters used when a post or comment is rendered as a string.
const PreviewLength = 15

// Post is a text entry written by a user, optionally filed under a group.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image is a path relative to the media root, empty when the post has no image.
	Image    string    `gorm:"size:255" json:"image,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p Post) String() string {
	return preview(p.Text)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > PreviewLength {
		return string(r[:PreviewLength])
	}
	return text
}
