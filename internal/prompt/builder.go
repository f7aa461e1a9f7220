// Package prompt assembles the instruction pair sent to the generation service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

const (
	DefaultCount = 10
	MaxTitles    = 5
)

// Prompt is the system/user instruction pair for one generation request.
type Prompt struct {
	System string
	User   string
	Count  int
}

type Builder struct {
	count int
}

// NewBuilder returns a builder asking for count recommendations.
func NewBuilder(count int) *Builder {
	if count <= 0 {
		count = DefaultCount
	}
	return &Builder{count: count}
}

func (b *Builder) Count() int { return b.count }

// Build renders titles, genres and optional feedback into a Prompt.
// Titles are embedded verbatim; callers trim and validate them first.
func (b *Builder) Build(titles, genres []string, feedback string) (Prompt, error) {
	if len(titles) == 0 {
		return Prompt{}, domain.NewInputError("at least one movie title is required")
	}

	var sys strings.Builder
	sys.WriteString("Please give me movie recommendations based on these movies: ")
	sys.WriteString(quoteList(titles))
	sys.WriteString(".")
	if len(genres) > 0 {
		sys.WriteString(" Prefer these genres: ")
		sys.WriteString(quoteList(genres))
		sys.WriteString(".")
	}
	if fb := strings.TrimSpace(feedback); fb != "" {
		sys.WriteString(" Use this feedback in your response: ")
		sys.WriteString(fb)
		sys.WriteString(".")
	}

	return Prompt{
		System: sys.String(),
		User:   b.contract(),
		Count:  b.count,
	}, nil
}

func (b *Builder) contract() string {
	return fmt.Sprintf("You are a movie recommendation bot that takes in similar movies and gives %[1]d specific movie "+
		"recommendations. Respond with a single JSON object and nothing else. The object has one key, "+
		`"recommendations", whose value is an array of exactly %[1]d objects. Each object has the keys `+
		`"title" (string), "genre" (string, comma-separated if more than one), "rating" (number, IMDb rating out of 10) `+
		`and "release_date" (string formatted YYYY-MM-DD). Use double quotes and close every bracket.`, b.count)
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}
