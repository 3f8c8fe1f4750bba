// Package memory is an arena-style, in-process implementation of the repository
// ports. Entities reference each other only by id; reads resolve ids into copies.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"webforum/internal/models"
	"webforum/internal/query"
	"webforum/internal/repository"

	"github.com/google/uuid"
)

type likeKey struct {
	postID uuid.UUID
	userID uuid.UUID
}

// Store holds every collection behind a single RWMutex. Each port method is one
// critical section, so compound writes such as AddLike are atomic.
type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]models.User
	usersByEmail map[string]uuid.UUID
	usersByName  map[string]uuid.UUID

	posts    map[uuid.UUID]models.Post
	comments map[uuid.UUID][]models.Comment
	likes    map[likeKey]models.Like
	postTags map[uuid.UUID][]uuid.UUID

	tags       map[uuid.UUID]models.Tag
	tagsByName map[string]uuid.UUID

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]models.User),
		usersByEmail: make(map[string]uuid.UUID),
		usersByName:  make(map[string]uuid.UUID),
		posts:        make(map[uuid.UUID]models.Post),
		comments:     make(map[uuid.UUID][]models.Comment),
		likes:        make(map[likeKey]models.Like),
		postTags:     make(map[uuid.UUID][]uuid.UUID),
		tags:         make(map[uuid.UUID]models.Tag),
		tagsByName:   make(map[string]uuid.UUID),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the store's UserRepository.
func (s *Store) Users() repository.UserRepository { return userPort{s} }

// Posts returns the store's PostRepository.
func (s *Store) Posts() repository.PostRepository { return postPort{s} }

// Tags returns the store's TagRepository.
func (s *Store) Tags() repository.TagRepository { return tagPort{s} }

// resolve returns a copy of the stored post with author, comments and tags filled in.
// Callers must hold at least a read lock.
func (s *Store) resolve(p models.Post) models.Post {
	p.Author = s.users[p.AuthorID]
	p.ResolveAuthorName()

	stored := s.comments[p.ID]
	p.Comments = make([]models.Comment, len(stored))
	for i, c := range stored {
		c.Author = s.users[c.AuthorID]
		c.AuthorName = c.Author.Username
		p.Comments[i] = c
	}

	ids := s.postTags[p.ID]
	p.Tags = make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		p.Tags = append(p.Tags, s.tags[id])
	}
	return p
}

func (s *Store) resolvedPosts() []models.Post {
	out := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, s.resolve(p))
	}
	return out
}

type userPort struct{ s *Store }

func (u userPort) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &user, nil
}

func (u userPort) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.usersByEmail[models.NormalizeKey(email)]
	if !ok {
		return nil, nil
	}
	user := u.s.users[id]
	return &user, nil
}

func (u userPort) GetByUsername(_ context.Context, username string) (*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.usersByName[models.NormalizeKey(username)]
	if !ok {
		return nil, nil
	}
	user := u.s.users[id]
	return &user, nil
}

func (u userPort) Create(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Normalize()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = u.s.now()
	}
	if _, taken := u.s.usersByEmail[user.EmailNormalized]; taken {
		return models.NewConflictError("User already exists")
	}
	if _, taken := u.s.usersByName[user.UsernameNormalized]; taken {
		return models.NewConflictError("User already exists")
	}
	u.s.users[user.ID] = *user
	u.s.usersByEmail[user.EmailNormalized] = user.ID
	u.s.usersByName[user.UsernameNormalized] = user.ID
	return nil
}

func (u userPort) SetModerator(_ context.Context, email string, isModerator bool) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	id, ok := u.s.usersByEmail[models.NormalizeKey(email)]
	if !ok {
		return models.NewNotFoundError("User", email)
	}
	user := u.s.users[id]
	user.IsModerator = isModerator
	u.s.users[id] = user
	return nil
}

type tagPort struct{ s *Store }

func (t tagPort) GetByName(_ context.Context, name string) (*models.Tag, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.tagsByName[models.NormalizeKey(strings.TrimSpace(name))]
	if !ok {
		return nil, nil
	}
	tag := t.s.tags[id]
	return &tag, nil
}

func (t tagPort) Create(_ context.Context, tag *models.Tag) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, taken := t.s.tagsByName[models.NormalizeKey(tag.Name)]; taken {
		return models.NewConflictError("Tag already exists")
	}
	t.s.insertTag(tag)
	return nil
}

func (t tagPort) GetOrCreate(_ context.Context, name string) (*models.Tag, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	name = strings.TrimSpace(name)
	if id, ok := t.s.tagsByName[models.NormalizeKey(name)]; ok {
		tag := t.s.tags[id]
		return &tag, nil
	}
	tag := &models.Tag{Name: name}
	t.s.insertTag(tag)
	return tag, nil
}

func (s *Store) insertTag(tag *models.Tag) {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	tag.NameNormalized = models.NormalizeKey(tag.Name)
	s.tags[tag.ID] = *tag
	s.tagsByName[tag.NameNormalized] = tag.ID
}

type postPort struct{ s *Store }

func (p postPort) ListAll(_ context.Context) ([]models.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	posts := p.s.resolvedPosts()
	// newest first, like the gorm store
	sort.Slice(posts, func(i, j int) bool {
		return query.New().Less(&posts[i], &posts[j])
	})
	return posts, nil
}

func (p postPort) ListFiltered(_ context.Context, q query.PostQuery) ([]models.Post, int64, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	items, total := query.Run(p.s.resolvedPosts(), q)
	return items, total, nil
}

func (p postPort) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	stored, ok := p.s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	post := p.s.resolve(stored)
	return &post, nil
}

// strip drops association fields so only ids are stored.
func strip(post models.Post) models.Post {
	post.Author = models.User{}
	post.AuthorName = ""
	post.Comments = nil
	post.Tags = nil
	post.Liked = false
	return post
}

func (p postPort) Create(_ context.Context, post *models.Post) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.users[post.AuthorID]; !ok {
		return models.NewNotFoundError("User", post.AuthorID)
	}
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = p.s.now()
	}
	p.s.posts[post.ID] = strip(*post)
	return nil
}

func (p postPort) Update(_ context.Context, post *models.Post) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.posts[post.ID]; !ok {
		return models.NewNotFoundError("Post", post.ID)
	}
	p.s.posts[post.ID] = strip(*post)
	return nil
}

func (p postPort) AddComment(_ context.Context, comment *models.Comment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.posts[comment.PostID]; !ok {
		return models.NewNotFoundError("Post", comment.PostID)
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = p.s.now()
	}
	c := *comment
	c.Author = models.User{}
	p.s.comments[c.PostID] = append(p.s.comments[c.PostID], c)
	return nil
}

func (p postPort) GetLike(_ context.Context, postID, userID uuid.UUID) (*models.Like, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	like, ok := p.s.likes[likeKey{postID, userID}]
	if !ok {
		return nil, nil
	}
	return &like, nil
}

func (p postPort) AddLike(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	post, ok := p.s.posts[postID]
	if !ok {
		return false, models.NewNotFoundError("Post", postID)
	}
	key := likeKey{postID, userID}
	if _, exists := p.s.likes[key]; exists {
		return false, nil
	}
	p.s.likes[key] = models.Like{ID: uuid.New(), PostID: postID, UserID: userID, CreatedAt: p.s.now()}
	post.LikeCount++
	p.s.posts[postID] = post
	return true, nil
}

func (p postPort) RemoveLike(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	key := likeKey{postID, userID}
	if _, exists := p.s.likes[key]; !exists {
		return false, nil
	}
	delete(p.s.likes, key)
	if post, ok := p.s.posts[postID]; ok {
		if post.LikeCount > 0 {
			post.LikeCount--
		}
		p.s.posts[postID] = post
	}
	return true, nil
}

func (p postPort) AttachTag(_ context.Context, postID, tagID uuid.UUID) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.posts[postID]; !ok {
		return false, models.NewNotFoundError("Post", postID)
	}
	if _, ok := p.s.tags[tagID]; !ok {
		return false, models.NewNotFoundError("Tag", tagID)
	}
	for _, existing := range p.s.postTags[postID] {
		if existing == tagID {
			return false, nil
		}
	}
	p.s.postTags[postID] = append(p.s.postTags[postID], tagID)
	return true, nil
}

func (p postPort) RecountLikes(_ context.Context) (int64, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	counts := make(map[uuid.UUID]int, len(p.s.posts))
	for key := range p.s.likes {
		counts[key.postID]++
	}
	var corrected int64
	for id, post := range p.s.posts {
		if post.LikeCount != counts[id] {
			post.LikeCount = counts[id]
			p.s.posts[id] = post
			corrected++
		}
	}
	return corrected, nil
}
