package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"webforum/internal/cache"
	"webforum/internal/models"
	"webforum/internal/observability"
	"webforum/internal/repository"
	"webforum/internal/service"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Options configuration for the seeder. It doubles as the YAML preset format.
type Options struct {
	NumUsers           int      `yaml:"users"`
	NumPosts           int      `yaml:"posts"`
	MaxCommentsPerPost int      `yaml:"max_comments_per_post"`
	MaxLikesPerPost    int      `yaml:"max_likes_per_post"`
	Tags               []string `yaml:"tags"`
	MaxTagsPerPost     int      `yaml:"max_tags_per_post"`
	MaxDays            int      `yaml:"max_days"`
	Password           string   `yaml:"password"`
	Seed               int64    `yaml:"seed"`
}

// DefaultOptions is a small data set suitable for local development.
func DefaultOptions() Options {
	return Options{
		NumUsers:           10,
		NumPosts:           40,
		MaxCommentsPerPost: 4,
		MaxLikesPerPost:    6,
		Tags:               []string{"go", "rust", "python", "databases", "devops", "frontend"},
		MaxTagsPerPost:     2,
		MaxDays:            60,
		Password:           "password123",
	}
}

// LoadPreset reads Options from a YAML file, starting from DefaultOptions so
// a preset only needs the keys it changes.
func LoadPreset(path string) (Options, error) {
	opts := DefaultOptions()
	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read preset: %w", err)
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return opts, nil
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Tags     int
}

// Seeder drives the services so seeded data obeys the same rules as live traffic.
type Seeder struct {
	posts    *service.PostService
	identity *service.IdentityService
	postRepo repository.PostRepository
	opts     Options
	factory  *Factory
	now      func() time.Time
}

// NewSeeder wires a seeder. postRepo is only used to backdate created posts.
func NewSeeder(posts *service.PostService, identity *service.IdentityService, postRepo repository.PostRepository, opts Options) *Seeder {
	return &Seeder{
		posts:    posts,
		identity: identity,
		postRepo: postRepo,
		opts:     opts,
		factory:  NewFactory(opts.Seed, opts.Password, opts.MaxDays),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run creates users (the first one a moderator), posts spread over MaxDays,
// and random comments, likes and tags.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if s.opts.NumUsers < 1 {
		return sum, fmt.Errorf("at least one user is required")
	}

	users := make([]uuid.UUID, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		profile, err := s.identity.Register(ctx, s.factory.User(i, i == 0))
		if err != nil {
			return sum, fmt.Errorf("register user %d: %w", i, err)
		}
		users = append(users, profile.ID)
		sum.Users++
	}

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.factory.Intn(len(users))]
		post, err := s.posts.CreatePost(ctx, s.factory.Post(author))
		if err != nil {
			return sum, fmt.Errorf("create post %d: %w", i, err)
		}
		sum.Posts++

		if err := s.backdate(ctx, post.ID); err != nil {
			return sum, err
		}

		for c := s.factory.Intn(s.opts.MaxCommentsPerPost + 1); c > 0; c-- {
			_, err := s.posts.AddComment(ctx, service.AddCommentInput{
				PostID:   post.ID,
				AuthorID: users[s.factory.Intn(len(users))],
				Body:     s.factory.Comment(),
			})
			if err != nil {
				return sum, fmt.Errorf("comment on %s: %w", post.ID, err)
			}
			sum.Comments++
		}

		liked := map[uuid.UUID]bool{author: true}
		for l := s.factory.Intn(s.opts.MaxLikesPerPost + 1); l > 0; l-- {
			liker := users[s.factory.Intn(len(users))]
			if liked[liker] {
				continue
			}
			liked[liker] = true
			if err := s.posts.AddLike(ctx, post.ID, liker); err != nil {
				return sum, fmt.Errorf("like %s: %w", post.ID, err)
			}
			sum.Likes++
		}

		if len(s.opts.Tags) > 0 {
			tagged := map[string]bool{}
			for n := s.factory.Intn(s.opts.MaxTagsPerPost + 1); n > 0; n-- {
				name := s.opts.Tags[s.factory.Intn(len(s.opts.Tags))]
				if tagged[name] {
					continue
				}
				tagged[name] = true
				if err := s.posts.AddTag(ctx, post.ID, name); err != nil {
					return sum, fmt.Errorf("tag %s: %w", post.ID, err)
				}
				sum.Tags++
			}
		}
	}

	cache.InvalidatePostsList(ctx)
	observability.GlobalLogger.InfoContext(ctx, "seed complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
		slog.Int("tags", sum.Tags),
	)
	return sum, nil
}

func (s *Seeder) backdate(ctx context.Context, postID uuid.UUID) error {
	stored, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	row := models.Post{
		ID:        stored.ID,
		Title:     stored.Title,
		Body:      stored.Body,
		AuthorID:  stored.AuthorID,
		CreatedAt: s.factory.CreatedAt(s.now()),
		LikeCount: stored.LikeCount,
	}
	return s.postRepo.Update(ctx, &row)
}
