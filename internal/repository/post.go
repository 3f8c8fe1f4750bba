package repository

import (
	"context"
	"errors"
	"time"

	"webforum/internal/models"
	"webforum/internal/observability"
	"webforum/internal/query"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations.
// Posts come back with Author, Tags and Comments (with their authors) resolved.
type PostRepository interface {
	ListAll(ctx context.Context) ([]models.Post, error)
	ListFiltered(ctx context.Context, q query.PostQuery) ([]models.Post, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	AddComment(ctx context.Context, comment *models.Comment) error
	GetLike(ctx context.Context, postID, userID uuid.UUID) (*models.Like, error)
	// AddLike inserts the like and bumps like_count as one unit. It reports false,
	// with no writes, when the pair already liked the post.
	AddLike(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	// RemoveLike deletes the like and decrements like_count (never below zero) as one unit.
	// It reports false, with no writes, when there was nothing to remove.
	RemoveLike(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	// AttachTag links the tag to the post, reporting false if it was already linked.
	AttachTag(ctx context.Context, postID, tagID uuid.UUID) (bool, error)
	// RecountLikes rewrites every like_count that disagrees with the likes table
	// and returns how many posts were corrected.
	RecountLikes(ctx context.Context) (int64, error)
}

type postRepository struct {
	db     *gorm.DB
	log    *observability.RepoLogger
	system string
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		db:     db,
		log:    observability.NewRepoLogger("posts"),
		system: db.Dialector.Name(),
	}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC").Order("comments.id ASC")
		}).
		Preload("Comments.Author")
}

func (r *postRepository) ListAll(ctx context.Context) ([]models.Post, error) {
	defer observability.TrackQuery("list_all", "posts")()

	var posts []models.Post
	err := withDetails(r.db.WithContext(ctx)).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_all")
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// filtered builds a fresh chain with every filter of q applied. Count and Find
// each need their own chain so ORDER/LIMIT never leak into the count.
func (r *postRepository) filtered(ctx context.Context, q query.PostQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.Post{})

	if q.Author != "" {
		pattern := "%" + escapeLike(models.NormalizeKey(q.Author)) + "%"
		authors := r.db.Model(&models.User{}).
			Select("id").
			Where("username_normalized LIKE ? ESCAPE '\\'", pattern)
		db = db.Where("posts.author_id IN (?)", authors)
	}
	if tags := q.NormalizedTags(); len(tags) > 0 {
		tagged := r.db.Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name_normalized IN ?", tags)
		db = db.Where("posts.id IN (?)", tagged)
	}
	if q.From != nil {
		db = db.Where("posts.created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		db = db.Where("posts.created_at <= ?", q.To.UTC())
	}
	return db
}

func orderBy(db *gorm.DB, q query.PostQuery) *gorm.DB {
	desc := q.Direction == query.Desc
	if q.SortBy == query.SortByLikes {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Table: "posts", Name: "like_count"}, Desc: desc})
	}
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Table: "posts", Name: "created_at"}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "posts", Name: "id"}, Desc: desc})
}

func (r *postRepository) ListFiltered(ctx context.Context, q query.PostQuery) (posts []models.Post, total int64, err error) {
	ctx, op := observability.StartStorage(ctx, r.system, "posts", "ListFiltered")
	defer func() { op.Finish(err) }()
	defer observability.TrackQuery("list_filtered", "posts")()

	if err = r.filtered(ctx, q).Count(&total).Error; err != nil {
		r.log.LogError(ctx, err, "count_filtered")
		return nil, 0, models.NewInternalError(err)
	}
	op.Annotate(observability.TotalAttr(total))

	posts = []models.Post{}
	if int64(q.Offset()) >= total {
		return posts, total, nil
	}

	err = orderBy(withDetails(r.filtered(ctx, q)), q).
		Offset(q.Offset()).
		Limit(q.Limit()).
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_filtered")
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := withDetails(r.db.WithContext(ctx)).First(&post, "posts.id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error; err != nil {
		r.log.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"post_id": post.ID})
	return nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "add_comment")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "post_id": comment.PostID})
	return nil
}

func (r *postRepository) GetLike(ctx context.Context, postID, userID uuid.UUID) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&like).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &like, nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, userID uuid.UUID) (added bool, err error) {
	ctx, op := observability.StartStorage(ctx, r.system, "likes", "AddLike")
	defer func() { op.Finish(err) }()
	op.Annotate(observability.PostAttr(postID), observability.UserAttr(userID))

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// INSERT ... ON CONFLICT DO NOTHING keeps duplicate likes out atomically
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Like{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true
		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "add_like")
		return false, models.NewInternalError(err)
	}
	if added {
		r.log.LogCreate(ctx, map[string]interface{}{"post_id": postID, "user_id": userID, "kind": "like"})
	}
	return added, nil
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID uuid.UUID) (removed bool, err error) {
	ctx, op := observability.StartStorage(ctx, r.system, "likes", "RemoveLike")
	defer func() { op.Finish(err) }()
	op.Annotate(observability.PostAttr(postID), observability.UserAttr(userID))

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "remove_like")
		return false, models.NewInternalError(err)
	}
	if removed {
		r.log.LogDelete(ctx, map[string]interface{}{"post_id": postID, "user_id": userID, "kind": "like"})
	}
	return removed, nil
}

func (r *postRepository) AttachTag(ctx context.Context, postID, tagID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostTag{PostID: postID, TagID: tagID, CreatedAt: time.Now().UTC()})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "attach_tag")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": postID, "tag_id": tagID, "kind": "post_tag"})
	return true, nil
}

func (r *postRepository) RecountLikes(ctx context.Context) (int64, error) {
	const actual = "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id)"
	res := r.db.WithContext(ctx).Exec(
		"UPDATE posts SET like_count = " + actual + " WHERE like_count <> " + actual,
	)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "recount_likes")
		return 0, models.NewInternalError(res.Error)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"corrected": res.RowsAffected, "kind": "recount_likes"})
	return res.RowsAffected, nil
}
