package service

import (
	"context"
	"strings"
	"time"

	"webforum/internal/cache"
	"webforum/internal/models"
	"webforum/internal/observability"
	"webforum/internal/query"
	"webforum/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// PostService owns the post lifecycle: creation, comments, likes and tags.
type PostService struct {
	posts   repository.PostRepository
	users   repository.UserRepository
	tags    repository.TagRepository
	listTTL time.Duration
	now     func() time.Time
}

type CreatePostInput struct {
	AuthorID uuid.UUID
	Title    string
	Body     string
}

type AddCommentInput struct {
	PostID   uuid.UUID
	AuthorID uuid.UUID
	Body     string
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	tags repository.TagRepository,
	listTTL time.Duration,
) *PostService {
	if listTTL <= 0 {
		listTTL = cache.ListTTL
	}
	return &PostService{
		posts:   posts,
		users:   users,
		tags:    tags,
		listTTL: listTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *observability.Operation) {
	return observability.StartOperation(ctx, "PostService", name, attrs...)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := startSpan(ctx, "CreatePost", observability.UserAttr(in.AuthorID))
	defer func() { span.Finish(err) }()

	author, err := s.users.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		ID:        uuid.New(),
		Title:     in.Title,
		Body:      in.Body,
		AuthorID:  author.ID,
		CreatedAt: s.now(),
		LikeCount: 0,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	post.Author = *author
	post.ResolveAuthorName()
	post.Comments = []models.Comment{}
	post.Tags = []models.Tag{}

	cache.InvalidatePostsList(ctx)
	observability.RecordContentEvent("post_created")
	return post, nil
}

func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) (comment *models.Comment, err error) {
	ctx, span := startSpan(ctx, "AddComment", observability.PostAttr(in.PostID), observability.UserAttr(in.AuthorID))
	defer func() { span.Finish(err) }()

	if _, err := s.posts.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	comment = &models.Comment{
		ID:        uuid.New(),
		PostID:    in.PostID,
		AuthorID:  author.ID,
		Body:      in.Body,
		CreatedAt: s.now(),
	}
	if err := s.posts.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = *author
	comment.AuthorName = author.Username

	cache.InvalidatePost(ctx, in.PostID)
	observability.RecordContentEvent("comment_added")
	return comment, nil
}

// AddLike records userID's like on postID. Liking twice is a no-op and authors
// may not like their own posts.
func (s *PostService) AddLike(ctx context.Context, postID, userID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "AddLike", observability.PostAttr(postID), observability.UserAttr(userID))
	defer func() { span.Finish(err) }()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if post.AuthorID == userID {
		return models.NewInvalidOperationError("You cannot like your own post")
	}

	added, err := s.posts.AddLike(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !added {
		observability.RecordContentEvent("like_noop")
		return nil
	}
	cache.InvalidatePost(ctx, postID)
	observability.RecordContentEvent("like_added")
	return nil
}

// RemoveLike withdraws userID's like. Removing a like that does not exist is a no-op.
func (s *PostService) RemoveLike(ctx context.Context, postID, userID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "RemoveLike", observability.PostAttr(postID), observability.UserAttr(userID))
	defer func() { span.Finish(err) }()

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return err
	}

	removed, err := s.posts.RemoveLike(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !removed {
		observability.RecordContentEvent("like_noop")
		return nil
	}
	cache.InvalidatePost(ctx, postID)
	observability.RecordContentEvent("like_removed")
	return nil
}

// AddTag attaches the tag named tagName, creating it on first use. Names are
// case-insensitive, so "Rust" and "rust" are the same tag.
func (s *PostService) AddTag(ctx context.Context, postID uuid.UUID, tagName string) (err error) {
	ctx, span := startSpan(ctx, "AddTag")
	defer func() { span.Finish(err) }()

	name := strings.TrimSpace(tagName)
	if name == "" {
		return models.NewValidationError("Tag name is required")
	}
	span.Annotate(observability.PostAttr(postID), observability.TagAttr(name))

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	tag, err := s.tags.GetOrCreate(ctx, name)
	if err != nil {
		return err
	}
	if post.HasTag(tag.ID) {
		return nil
	}

	attached, err := s.posts.AttachTag(ctx, postID, tag.ID)
	if err != nil {
		return err
	}
	if attached {
		cache.InvalidatePost(ctx, postID)
		observability.RecordContentEvent("tag_attached")
	}
	return nil
}

// GetAll returns every post, newest first.
func (s *PostService) GetAll(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListAll(ctx)
}

// ListPosts answers a filtered, sorted, paged listing. Pages are served from
// the cache until the next content mutation.
func (s *PostService) ListPosts(ctx context.Context, q query.PostQuery) (page query.Page[models.Post], err error) {
	ctx, span := startSpan(ctx, "ListPosts")
	defer func() { span.Finish(err) }()

	if err := q.Validate(); err != nil {
		return query.Page[models.Post]{}, err
	}

	key := cache.PostsListKey(ctx, q.CacheKey())
	err = cache.Aside(ctx, key, &page, s.listTTL, func() error {
		items, total, fetchErr := s.posts.ListFiltered(ctx, q)
		if fetchErr != nil {
			return fetchErr
		}
		page = query.NewPage(items, q, total)
		return nil
	})
	if err != nil {
		return query.Page[models.Post]{}, err
	}
	span.Annotate(observability.TotalAttr(page.TotalCount))
	return page, nil
}

// GetPost returns a single post with comments and tags. When viewerID is set,
// Liked reports whether that user likes the post.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uuid.UUID) (post *models.Post, err error) {
	ctx, span := startSpan(ctx, "GetPost", observability.PostAttr(postID))
	defer func() { span.Finish(err) }()

	var cached models.Post
	err = cache.Aside(ctx, cache.PostKey(ctx, postID), &cached, cache.PostTTL, func() error {
		p, fetchErr := s.posts.GetByID(ctx, postID)
		if fetchErr != nil {
			return fetchErr
		}
		cached = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if viewerID != uuid.Nil {
		like, err := s.posts.GetLike(ctx, postID, viewerID)
		if err != nil {
			return nil, err
		}
		cached.Liked = like != nil
	}
	return &cached, nil
}

// RecountLikes repairs like counters that drifted from the likes table.
func (s *PostService) RecountLikes(ctx context.Context) (int64, error) {
	corrected, err := s.posts.RecountLikes(ctx)
	if err != nil {
		return 0, err
	}
	if corrected > 0 {
		cache.InvalidatePostsList(ctx)
	}
	return corrected, nil
}
