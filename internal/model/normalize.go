package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

const dateLayout = "2006-01-02"

// Key synonyms seen across generations of the prompt. Lookups also ignore
// case, spaces, underscores and hyphens, so "Release Date" finds release_date.
var (
	listKeys        = []string{"recommendations", "movies"}
	titleKeys       = []string{"title", "name"}
	genreKeys       = []string{"genre", "genres"}
	ratingKeys      = []string{"rating", "imdb_rating", "score"}
	releaseDateKeys = []string{"release_date", "release date", "releaseDate", "release"}
)

var dateLayouts = []string{
	dateLayout,
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006-01",
}

// Normalize parses a raw reply into at most limit recommendations. Any
// unusable item fails the whole batch. Owner and timestamps are left empty.
func Normalize(raw string, limit int) ([]domain.Recommendation, error) {
	body, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	var top map[string]any
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, &ContentError{Msg: "decode reply", Err: err}
	}

	listVal, ok := lookup(top, listKeys)
	if !ok {
		return nil, &ContentError{Msg: `reply has no "recommendations" array`}
	}
	items, ok := listVal.([]any)
	if !ok {
		return nil, &ContentError{Msg: fmt.Sprintf(`"recommendations" is %T, not an array`, listVal)}
	}
	if len(items) == 0 {
		return nil, &ContentError{Msg: "reply has no recommendations"}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	recs := make([]domain.Recommendation, 0, len(items))
	for i, v := range items {
		item, ok := v.(map[string]any)
		if !ok {
			return nil, &InvalidFieldError{Index: i, Field: "recommendation", Value: v}
		}
		rec, err := normalizeItem(i, item)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func normalizeItem(i int, item map[string]any) (domain.Recommendation, error) {
	var rec domain.Recommendation

	v, ok := lookup(item, titleKeys)
	if !ok {
		return rec, &MissingFieldError{Index: i, Field: "title"}
	}
	title, ok := v.(string)
	if !ok || strings.TrimSpace(title) == "" {
		return rec, &InvalidFieldError{Index: i, Field: "title", Value: v}
	}
	rec.Title = strings.TrimSpace(title)

	v, ok = lookup(item, genreKeys)
	if !ok {
		return rec, &MissingFieldError{Index: i, Field: "genre"}
	}
	genre, err := genreString(v)
	if err != nil {
		return rec, &InvalidFieldError{Index: i, Field: "genre", Value: v}
	}
	rec.Genre = genre

	v, ok = lookup(item, ratingKeys)
	if !ok {
		return rec, &MissingFieldError{Index: i, Field: "rating"}
	}
	rating, err := parseRating(v)
	if err != nil {
		return rec, &InvalidFieldError{Index: i, Field: "rating", Value: v}
	}
	rec.Rating = rating

	v, ok = lookup(item, releaseDateKeys)
	if !ok {
		return rec, &MissingFieldError{Index: i, Field: "release_date"}
	}
	date, err := parseDate(v)
	if err != nil {
		return rec, &InvalidFieldError{Index: i, Field: "release_date", Value: v}
	}
	rec.ReleaseDate = date

	return rec, nil
}

// extractObject strips markdown fences and any prose around the JSON object.
func extractObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", &ContentError{Msg: "reply contains no JSON object"}
	}
	return s[start : end+1], nil
}

func keyToken(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(k))
}

// lookup returns the first non-null value stored under any synonym.
func lookup(m map[string]any, synonyms []string) (any, bool) {
	for _, k := range synonyms {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	want := make(map[string]struct{}, len(synonyms))
	for _, k := range synonyms {
		want[keyToken(k)] = struct{}{}
	}
	for k, v := range m {
		if _, ok := want[keyToken(k)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func genreString(v any) (string, error) {
	switch g := v.(type) {
	case string:
		return strings.TrimSpace(g), nil
	case []any:
		parts := make([]string, 0, len(g))
		for _, p := range g {
			s, ok := p.(string)
			if !ok {
				return "", fmt.Errorf("genre element is %T", p)
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("genre is %T", v)
	}
}

func parseRating(v any) (float64, error) {
	var f float64
	switch r := v.(type) {
	case float64:
		f = r
	case json.Number:
		var err error
		if f, err = r.Float64(); err != nil {
			return 0, err
		}
	case string:
		s := strings.TrimSpace(r)
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("rating is %T", v)
	}
	if math.IsNaN(f) || f < 0 || f > 10 {
		return 0, fmt.Errorf("rating %v out of range", f)
	}
	return f, nil
}

func parseDate(v any) (string, error) {
	switch d := v.(type) {
	case float64:
		// bare year
		if d >= 1800 && d <= 3000 && d == math.Trunc(d) {
			return fmt.Sprintf("%04d-01-01", int(d)), nil
		}
		return "", fmt.Errorf("release date %v", d)
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(dateLayout), nil
			}
		}
		if len(s) == 4 {
			if y, err := strconv.Atoi(s); err == nil && y >= 1800 && y <= 3000 {
				return fmt.Sprintf("%04d-01-01", y), nil
			}
		}
		return "", fmt.Errorf("unrecognized release date %q", s)
	default:
		return "", fmt.Errorf("release date is %T", v)
	}
}
