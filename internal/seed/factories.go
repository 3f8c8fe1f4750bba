// Package seed creates demo data through the forum services. It is intended
// for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"webforum/internal/service"
	"webforum/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Factory builds service inputs from fake data. A fixed seed gives a reproducible data set.
type Factory struct {
	faker    *gofakeit.Faker
	password string
	maxDays  int
}

// NewFactory creates a Factory. seed 0 picks a random seed.
func NewFactory(seed int64, password string, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{faker: gofakeit.New(seed), password: password, maxDays: maxDays}
}

// User returns a registration for the i-th user. The index keeps names unique.
func (f *Factory) User(i int, moderator bool) service.RegisterInput {
	username := fmt.Sprintf("%s%d", f.faker.Username(), i)
	return service.RegisterInput{
		Username:    username,
		Email:       fmt.Sprintf("%s.%d@%s", localPart(username), i, f.faker.DomainName()),
		Password:    f.password,
		IsModerator: moderator,
	}
}

// Post returns a post by author with a title and body inside the accepted lengths.
func (f *Factory) Post(author uuid.UUID) service.CreatePostInput {
	return service.CreatePostInput{
		AuthorID: author,
		Title:    truncate(f.faker.Sentence(6), validation.MaxTitleLength),
		Body:     truncate(f.faker.Paragraph(1, 3, 12, "\n"), validation.MaxBodyLength),
	}
}

// Comment returns a short comment body.
func (f *Factory) Comment() string {
	return truncate(f.faker.Sentence(f.faker.Number(4, 16)), validation.MaxCommentLength)
}

// CreatedAt returns a timestamp spread over the last maxDays.
func (f *Factory) CreatedAt(now time.Time) time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return now.Add(-back).UTC()
}

// Intn returns a value in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

// localPart keeps only the characters every mail validator accepts.
func localPart(name string) string {
	out := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(name))
	if out == "" {
		return "user"
	}
	return out
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
