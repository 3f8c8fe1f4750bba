package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post represents a top-level forum post.
// LikeCount is denormalized from the likes table and only moves together with a Like row.
type Post struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title    string    `gorm:"size:100;not null" json:"title"`
	Body     string    `gorm:"type:text;not null" json:"body"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID" json:"-"`
	// AuthorName is the author's username, filled whenever Author is loaded
	AuthorName string    `gorm:"-" json:"author"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
	LikeCount  int       `gorm:"not null;default:0;index" json:"like_count"`
	Comments   []Comment `gorm:"foreignKey:PostID" json:"comments"`
	Tags       []Tag     `gorm:"many2many:post_tags" json:"tags"`
	// Liked indicates whether the requesting user liked this post (computed)
	Liked bool `gorm:"-" json:"liked"`
}

// BeforeCreate assigns an ID when the caller did not.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AfterFind copies the preloaded author's username into AuthorName.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.ResolveAuthorName()
	return nil
}

// ResolveAuthorName fills AuthorName from a loaded Author.
func (p *Post) ResolveAuthorName() {
	if p.Author.Username != "" {
		p.AuthorName = p.Author.Username
	}
}

// HasTag reports whether the post already references the tag.
func (p *Post) HasTag(tagID uuid.UUID) bool {
	for _, t := range p.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}
