package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTaxonomyNames(t *testing.T) {
	tax := Default()

	assert.Equal(t, "action", tax.Name(28))
	assert.Equal(t, "adventure", tax.Name(12))
	assert.Equal(t, "science fiction", tax.Name(878))
	assert.Equal(t, Unknown, tax.Name(999999))
}

func TestTaxonomyIDLookup(t *testing.T) {
	tax := Default()

	id, ok := tax.ID("Science-Fiction")
	require.True(t, ok)
	assert.Equal(t, 878, id)

	_, ok = tax.ID("polka")
	assert.False(t, ok)
}

func TestTaxonomyNamesKeepsOrder(t *testing.T) {
	names := Default().Names([]int{12, 999999, 28})
	assert.Equal(t, []string{"adventure", Unknown, "action"}, names)
}

func TestNewOverridesAndSkipsBlank(t *testing.T) {
	tax := New([]Entry{
		{ID: 1, Name: "Noir"},
		{ID: 2, Name: "  "},
		{ID: 1, Name: "Neo Noir"},
	})

	assert.Equal(t, "neo noir", tax.Name(1))
	assert.Equal(t, Unknown, tax.Name(2))
	assert.Equal(t, []Entry{{ID: 1, Name: "neo noir"}}, tax.Entries())
}

func TestToken(t *testing.T) {
	cases := map[string]string{
		"Sci-Fi":          "scifi",
		"scifi":           "scifi",
		"Science Fiction": "sciencefiction",
		"  ACTION ":       "action",
		"Café":            "cafe",
		"TV Movie":        "tvmovie",
		"---":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Token(in), "Token(%q)", in)
	}
}

func TestExpandAliases(t *testing.T) {
	assert.Equal(t, []string{"sciencefiction"}, Expand("Sci-Fi"))
	assert.Equal(t, []string{"romance", "comedy"}, Expand("Rom-Com"))
	assert.Equal(t, []string{"horror"}, Expand("Horror"))
	assert.Nil(t, Expand("  "))
}

func TestTokenSetDropsUnknown(t *testing.T) {
	set := TokenSet([]string{"Unknown", "unknown", "action"})
	assert.Len(t, set, 1)
	assert.Contains(t, set, "action")
}

func TestIntersects(t *testing.T) {
	item := TokenSet(Default().Names([]int{28, 12}))

	assert.True(t, Intersects(item, TokenSet([]string{"Action"})))
	assert.False(t, Intersects(item, TokenSet([]string{"horror"})))
	assert.False(t, Intersects(item, TokenSet(nil)))
}

func TestUnknownIDNeverMatches(t *testing.T) {
	item := TokenSet(Default().Names([]int{999999}))

	assert.Empty(t, item)
	assert.False(t, Intersects(item, TokenSet([]string{"Unknown", "action", "horror"})))
}
