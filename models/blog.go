package models

import (
	"time"

	"gorm.io/gorm"
)

// Blog is a user's post. Content is rich-text HTML produced by the editor.
type Blog struct {
	ID         string   `json:"_id" gorm:"primaryKey;size:36"`
	Title      string   `json:"title" gorm:"not null"`
	Slug       string   `json:"slug" gorm:"index"`
	Content    string   `json:"content" gorm:"type:text;not null"`
	ImageURL   *string  `json:"imageUrl"`
	AuthorID   string   `json:"-" gorm:"size:36;not null;index"`
	Author     *User    `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Categories []string `json:"categories" gorm:"type:text;serializer:json"`

	Likes    []BlogLike `json:"-" gorm:"foreignKey:BlogID;constraint:OnDelete:CASCADE"`
	Comments []Comment  `json:"-" gorm:"foreignKey:BlogID;constraint:OnDelete:CASCADE"`

	// Calculated fields (not stored in DB)
	LikedBy      []string `json:"likes" gorm:"-"`
	LikeCount    int      `json:"likeCount" gorm:"-"`
	CommentCount int      `json:"commentCount" gorm:"-"`

	Timestamps
}

func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	newID(&b.ID)
	return nil
}

// AfterFind fills the calculated like/comment fields when the relations were preloaded.
func (b *Blog) AfterFind(tx *gorm.DB) error {
	b.LikedBy = make([]string, 0, len(b.Likes))
	for _, l := range b.Likes {
		b.LikedBy = append(b.LikedBy, l.UserID)
	}
	b.LikeCount = len(b.Likes)
	b.CommentCount = len(b.Comments)
	return nil
}

type BlogLike struct {
	ID        string    `json:"_id" gorm:"primaryKey;size:36"`
	BlogID    string    `json:"blog" gorm:"size:36;not null;uniqueIndex:idx_blog_like_user"`
	UserID    string    `json:"user" gorm:"size:36;not null;uniqueIndex:idx_blog_like_user;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (l *BlogLike) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}

type Comment struct {
	ID     string `json:"_id" gorm:"primaryKey;size:36"`
	Text   string `json:"text" gorm:"type:text;not null"`
	BlogID string `json:"blog" gorm:"size:36;not null;index"`
	UserID string `json:"-" gorm:"size:36;not null;index"`
	User   *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`

	Timestamps
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}
