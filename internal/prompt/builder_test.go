package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainsEveryTitle(t *testing.T) {
	b := NewBuilder(10)
	for n := 1; n <= MaxTitles; n++ {
		titles := []string{"Inception", "Interstellar", "Amélie", "Se7en", "Spider-Man: No Way Home"}[:n]

		p, err := b.Build(titles, nil, "")
		require.NoError(t, err)
		for _, title := range titles {
			assert.Contains(t, p.System, title)
		}
	}
}

func TestBuildGenresAndFeedback(t *testing.T) {
	p, err := NewBuilder(10).Build([]string{"Inception"}, []string{"Sci-Fi", "thriller"}, "  less horror  ")
	require.NoError(t, err)

	assert.Contains(t, p.System, `"Sci-Fi", "thriller"`)
	assert.Contains(t, p.System, "Use this feedback in your response: less horror.")
}

func TestBuildOmitsBlankFeedback(t *testing.T) {
	p, err := NewBuilder(10).Build([]string{"Inception"}, nil, "   ")
	require.NoError(t, err)

	assert.NotContains(t, p.System, "feedback")
	assert.NotContains(t, p.System, "genres")
}

func TestBuildContract(t *testing.T) {
	p, err := NewBuilder(30).Build([]string{"Heat"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 30, p.Count)
	assert.Contains(t, p.User, "exactly 30 objects")
	for _, key := range []string{`"recommendations"`, `"title"`, `"genre"`, `"rating"`, `"release_date"`, "YYYY-MM-DD"} {
		assert.True(t, strings.Contains(p.User, key), "contract should mention %s", key)
	}
}

func TestBuildEmptyTitles(t *testing.T) {
	_, err := NewBuilder(10).Build(nil, []string{"action"}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNewBuilderDefaultCount(t *testing.T) {
	assert.Equal(t, DefaultCount, NewBuilder(0).Count())
}

func TestBuildKeepsQuotesVerbatim(t *testing.T) {
	p, err := NewBuilder(10).Build([]string{`The "Burbs"`}, nil, "")
	require.NoError(t, err)
	assert.Contains(t, p.System, `The "Burbs"`)
}
