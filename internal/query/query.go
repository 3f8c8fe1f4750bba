// Package query describes filtered, sorted, paginated post listings and
// evaluates them over in-memory post collections.
package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"webforum/internal/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPage         = math.MaxInt32
)

// SortField selects the primary ordering key.
type SortField int

const (
	SortByCreatedDate SortField = iota
	SortByLikes
)

func (f SortField) String() string {
	if f == SortByLikes {
		return "Likes"
	}
	return "CreatedDate"
}

// Direction toggles ascending/descending order.
type Direction int

const (
	Desc Direction = iota
	Asc
)

func (d Direction) String() string {
	if d == Asc {
		return "Asc"
	}
	return "Desc"
}

// PostQuery is the combination of filters, sort and page parameters for a post listing.
// Filters are AND-combined; an empty Tags slice or nil bound means "no filter".
type PostQuery struct {
	Page      int
	PageSize  int
	Author    string
	Tags      []string
	From      *time.Time
	To        *time.Time
	SortBy    SortField
	Direction Direction
}

// New returns a query with the default page, page size and ordering (newest first).
func New() PostQuery {
	return PostQuery{
		Page:      DefaultPage,
		PageSize:  DefaultPageSize,
		SortBy:    SortByCreatedDate,
		Direction: Desc,
	}
}

// Validate rejects out-of-range paging. The engine itself treats any valid query as well-formed.
func (q PostQuery) Validate() error {
	if q.Page < 1 || q.Page > MaxPage {
		return models.NewValidationError(fmt.Sprintf("Page must be between 1 and %d", MaxPage))
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return models.NewValidationError(fmt.Sprintf("PageSize must be between 1 and %d", MaxPageSize))
	}
	return nil
}

// Offset is the number of sorted rows skipped before the page starts.
// It saturates at math.MaxInt instead of wrapping, so an unvalidated huge
// page still lands past the end.
func (q PostQuery) Offset() int {
	if q.Page <= 1 || q.PageSize <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

// Limit is the maximum number of rows on the page.
func (q PostQuery) Limit() int {
	return q.PageSize
}

// NormalizedTags returns the requested tag names case-folded for matching.
func (q PostQuery) NormalizedTags() []string {
	out := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		out = append(out, models.NormalizeKey(t))
	}
	return out
}

// CacheKey renders the query canonically so equal queries share a cache entry.
func (q PostQuery) CacheKey() string {
	tags := q.NormalizedTags()
	sort.Strings(tags)

	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(strconv.Itoa(q.Page))
	b.WriteString("|s=")
	b.WriteString(strconv.Itoa(q.PageSize))
	b.WriteString("|a=")
	b.WriteString(strconv.Quote(strings.ToLower(q.Author)))
	b.WriteString("|t=")
	b.WriteString(strconv.Quote(strings.Join(tags, ",")))
	b.WriteString("|f=")
	if q.From != nil {
		b.WriteString(q.From.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|u=")
	if q.To != nil {
		b.WriteString(q.To.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|o=")
	b.WriteString(q.SortBy.String())
	b.WriteString(":")
	b.WriteString(q.Direction.String())
	return b.String()
}

// ParseSortField accepts the advertised sort keys, case-insensitively.
// An empty value selects the default.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "createddate":
		return SortByCreatedDate, nil
	case "likes":
		return SortByLikes, nil
	default:
		return SortByCreatedDate, models.NewValidationError("SortBy must be one of CreatedDate, Likes")
	}
}

// ParseDirection accepts Asc or Desc, case-insensitively. An empty value selects Desc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return Desc, nil
	case "asc":
		return Asc, nil
	default:
		return Desc, models.NewValidationError("SortDirection must be Asc or Desc")
	}
}

// ParseTags splits a comma-separated tag list, dropping blanks and case-insensitive duplicates.
func ParseTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, part := range strings.Split(csv, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := models.NormalizeKey(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, name)
	}
	return tags
}
