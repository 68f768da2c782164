package models

import "fmt"

// Follow is a directed subscription: User sees Author's posts in their follow feed.
// A user can follow an author at most once and never themselves.
type Follow struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_follows_user_author" json:"user_id"`
	AuthorID uint `gorm:"not null;uniqueIndex:idx_follows_user_author;index;check:chk_follows_no_self,user_id <> author_id" json:"author_id"`

	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

func (f Follow) String() string {
	return fmt.Sprintf("%s follows %s", f.User.Username, f.Author.Username)
}
