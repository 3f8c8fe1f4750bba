package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PostKeyPrefix      = "post:%s:v%d"
	PostVersionPrefix  = "post:%s:version"
	PostsListVersion   = "posts:list:version"
	PostsListKeyPrefix = "posts:list:v%d:%s"
)

const (
	PostTTL = 5 * time.Minute
	ListTTL = 30 * time.Second
)

func currentVersion(ctx context.Context, key string) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// PostKey scopes a post's cache entry to its version. A fetch that started
// before InvalidatePost writes under the old version, which no later read uses.
func PostKey(ctx context.Context, postID uuid.UUID) string {
	return fmt.Sprintf(PostKeyPrefix, postID, currentVersion(ctx, fmt.Sprintf(PostVersionPrefix, postID)))
}

// PostsListKey scopes a listing key to the current list version, so bumping the
// version orphans every cached page at once.
func PostsListKey(ctx context.Context, queryKey string) string {
	return fmt.Sprintf(PostsListKeyPrefix, currentVersion(ctx, PostsListVersion), queryKey)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePostsList bumps the list version. Old pages expire on their own TTL.
func InvalidatePostsList(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, PostsListVersion)
	}
}

// InvalidatePost drops the cached post, moves the post to a fresh version and
// bumps the list version.
func InvalidatePost(ctx context.Context, postID uuid.UUID) {
	if client != nil {
		Invalidate(ctx, PostKey(ctx, postID))
		client.Incr(ctx, fmt.Sprintf(PostVersionPrefix, postID))
	}
	InvalidatePostsList(ctx)
}
