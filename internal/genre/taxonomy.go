// Package genre holds the catalog genre taxonomy and the canonical token
// form used to compare genre names from different sources.
package genre

import (
	"sort"
	"strings"
)

// Unknown is returned for ids the taxonomy does not know. It never matches a preference.
const Unknown = "Unknown"

type Entry struct {
	ID   int    `json:"id" koanf:"id"`
	Name string `json:"name" koanf:"name"`
}

// TMDb movie genre list.
var defaultEntries = []Entry{
	{ID: 28, Name: "action"},
	{ID: 12, Name: "adventure"},
	{ID: 16, Name: "animation"},
	{ID: 35, Name: "comedy"},
	{ID: 80, Name: "crime"},
	{ID: 99, Name: "documentary"},
	{ID: 18, Name: "drama"},
	{ID: 10751, Name: "family"},
	{ID: 14, Name: "fantasy"},
	{ID: 36, Name: "history"},
	{ID: 27, Name: "horror"},
	{ID: 10402, Name: "music"},
	{ID: 9648, Name: "mystery"},
	{ID: 10749, Name: "romance"},
	{ID: 878, Name: "science fiction"},
	{ID: 10770, Name: "tv movie"},
	{ID: 53, Name: "thriller"},
	{ID: 10752, Name: "war"},
	{ID: 37, Name: "western"},
}

// Taxonomy is an immutable bidirectional id/name table. Safe for concurrent use.
type Taxonomy struct {
	byID   map[int]string
	byName map[string]int
}

// Default returns the built-in catalog taxonomy.
func Default() *Taxonomy {
	return New(defaultEntries)
}

// New builds a taxonomy from entries. Names are stored lowercase; later
// entries override earlier ones with the same id.
func New(entries []Entry) *Taxonomy {
	t := &Taxonomy{
		byID:   make(map[int]string, len(entries)),
		byName: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			continue
		}
		t.byID[e.ID] = name
		t.byName[Token(name)] = e.ID
	}
	return t
}

// Name returns the lowercase genre name for id, or Unknown.
func (t *Taxonomy) Name(id int) string {
	if name, ok := t.byID[id]; ok {
		return name
	}
	return Unknown
}

// ID looks a genre up by any spelling that reduces to the same token.
func (t *Taxonomy) ID(name string) (int, bool) {
	id, ok := t.byName[Token(name)]
	return id, ok
}

// Names translates ids in order. Unknown ids yield Unknown.
func (t *Taxonomy) Names(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, t.Name(id))
	}
	return names
}

// Entries returns the table sorted by id.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, 0, len(t.byID))
	for id, name := range t.byID {
		out = append(out, Entry{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
