package query

import (
	"bytes"
	"sort"
	"strings"

	"webforum/internal/models"

	"github.com/google/uuid"
)

// Matches reports whether a post passes every filter in q.
// The post's Author and Tags must already be resolved.
func (q PostQuery) Matches(p *models.Post) bool {
	if q.Author != "" {
		if !strings.Contains(models.NormalizeKey(p.Author.Username), models.NormalizeKey(q.Author)) {
			return false
		}
	}
	if len(q.Tags) > 0 && !hasAnyTag(p, q.NormalizedTags()) {
		return false
	}
	if q.From != nil && p.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && p.CreatedAt.After(*q.To) {
		return false
	}
	return true
}

func hasAnyTag(p *models.Post, wanted []string) bool {
	for _, t := range p.Tags {
		key := models.NormalizeKey(t.Name)
		for _, w := range wanted {
			if key == w {
				return true
			}
		}
	}
	return false
}

// Less orders a before b: primary key per SortBy, then CreatedAt, then ID,
// all in the same direction. The ID tie-break makes the order total.
func (q PostQuery) Less(a, b *models.Post) bool {
	c := compare(q.SortBy, a, b)
	if q.Direction == Desc {
		return c > 0
	}
	return c < 0
}

func compare(field SortField, a, b *models.Post) int {
	if field == SortByLikes && a.LikeCount != b.LikeCount {
		if a.LikeCount < b.LikeCount {
			return -1
		}
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// Run filters, de-duplicates, sorts and pages posts. The total counts the
// filtered set before paging; a page past the end is empty, not an error.
func Run(posts []models.Post, q PostQuery) ([]models.Post, int64) {
	seen := make(map[uuid.UUID]struct{}, len(posts))
	filtered := make([]models.Post, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if q.Matches(p) {
			filtered = append(filtered, *p)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return q.Less(&filtered[i], &filtered[j])
	})

	total := int64(len(filtered))
	start := q.Offset()
	if start >= len(filtered) {
		return []models.Post{}, total
	}
	end := start + q.Limit()
	if end > len(filtered) || end < start {
		end = len(filtered)
	}
	return filtered[start:end], total
}
