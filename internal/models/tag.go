package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag is a globally shared label. Names are unique case-insensitively.
type Tag struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:200;not null" json:"name"`
	NameNormalized string    `gorm:"size:200;not null;uniqueIndex" json:"-"`
}

func (t *Tag) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.NameNormalized = NormalizeKey(t.Name)
	return nil
}

// PostTag is the join row between posts and tags; the composite key makes attaching idempotent.
type PostTag struct {
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM.
func (PostTag) TableName() string {
	return "post_tags"
}
