package database

import (
	"fmt"

	"webforum/internal/models"

	"gorm.io/gorm"
)

// Migrate registers the post/tag join model and auto-migrates every persistent model.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Post{}, "Tags", &models.PostTag{}); err != nil {
		return fmt.Errorf("setup post_tags join table: %w", err)
	}
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
