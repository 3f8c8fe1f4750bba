package repository

import (
	"context"
	"errors"
	"strings"

	"webforum/internal/models"
	"webforum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository defines persistence operations for tags. Names are matched case-insensitively.
type TagRepository interface {
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	// GetOrCreate returns the tag with this name, creating it if needed.
	// Concurrent calls with the same name converge on one row.
	GetOrCreate(ctx context.Context, name string) (*models.Tag, error)
}

type tagRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewTagRepository returns a gorm-backed TagRepository.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db, log: observability.NewRepoLogger("tags")}
}

func (r *tagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("name_normalized = ?", models.NormalizeKey(strings.TrimSpace(name))).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &tag, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Tag already exists")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"tag_id": tag.ID, "name": tag.Name})
	return nil
}

func (r *tagRepository) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	tag := &models.Tag{Name: name}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name_normalized"}}, DoNothing: true}).
		Create(tag)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "get_or_create")
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 1 {
		r.log.LogCreate(ctx, map[string]interface{}{"tag_id": tag.ID, "name": tag.Name})
		return tag, nil
	}

	existing, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, models.NewInternalError(errors.New("tag vanished after conflicting insert"))
	}
	return existing, nil
}
