// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package recipes

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/staranto/recipectl/internal/apperr"
)

// Recipe is one entry of the recipe list. URL fields are empty when the feed
// omits them or carries something that is not an absolute URL.
type Recipe struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Cuisine    string    `json:"cuisine" yaml:"cuisine"`
	PhotoSmall string    `json:"photoSmall,omitempty" yaml:"photoSmall,omitempty"`
	PhotoLarge string    `json:"photoLarge,omitempty" yaml:"photoLarge,omitempty"`
	SourceURL  string    `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	YoutubeURL string    `json:"youtubeUrl,omitempty" yaml:"youtubeUrl,omitempty"`
}

// BestImageURL picks the large or small photo, falling back to the other.
func (r Recipe) BestImageURL(preferLarge bool) string {
	if preferLarge {
		return firstNonEmpty(r.PhotoLarge, r.PhotoSmall)
	}
	return firstNonEmpty(r.PhotoSmall, r.PhotoLarge)
}

// HasImage reports whether either photo URL is set.
func (r Recipe) HasImage() bool {
	return r.PhotoSmall != "" || r.PhotoLarge != ""
}

// Matches reports whether term is a case-insensitive substring of the name or
// the cuisine. An empty term matches everything.
func (r Recipe) Matches(term string) bool {
	if term == "" {
		return true
	}
	t := strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.Name), t) ||
		strings.Contains(strings.ToLower(r.Cuisine), t)
}

// FirstLetter is the uppercased first rune of the name.
func (r Recipe) FirstLetter() string {
	c, size := utf8.DecodeRuneInString(r.Name)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(c))
}

// DisplayTitle is "Name (Cuisine)".
func (r Recipe) DisplayTitle() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.Cuisine)
}

// Collection is an ordered list of recipes.
type Collection []Recipe

// Filter keeps the recipes matching term, preserving order.
func (c Collection) Filter(term string) Collection {
	out := make(Collection, 0, len(c))
	for _, r := range c {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

// Sorted returns a copy ordered by name, case-insensitively.
func (c Collection) Sorted() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a == b {
			return out[i].Name < out[j].Name
		}
		return a < b
	})
	return out
}

// GroupByFirstLetter buckets recipes by FirstLetter, preserving order within
// each bucket.
func (c Collection) GroupByFirstLetter() map[string]Collection {
	groups := make(map[string]Collection)
	for _, r := range c {
		l := r.FirstLetter()
		groups[l] = append(groups[l], r)
	}
	return groups
}

// Letters returns the keys of GroupByFirstLetter in sorted order.
func Letters(groups map[string]Collection) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ImageURLs returns the best image URL of each recipe that has one.
func (c Collection) ImageURLs(preferLarge bool) []string {
	urls := make([]string, 0, len(c))
	for _, r := range c {
		if u := r.BestImageURL(preferLarge); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Search trims term and returns the matching recipes sorted by name. A blank
// term returns everything, sorted.
func Search(c Collection, term string) Collection {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.Sorted()
	}
	return c.Filter(term).Sorted()
}

// Parse decodes a {"recipes":[...]} document. Rows with an invalid uuid or a
// blank name or cuisine are skipped.
func Parse(data []byte) (Collection, error) {
	if !gjson.ValidBytes(data) {
		return nil, apperr.MalformedData("Failed to parse recipe data")
	}
	rows := gjson.GetBytes(data, "recipes")
	if !rows.IsArray() {
		return nil, apperr.MalformedData("Failed to parse recipe data")
	}

	items := rows.Array()
	if len(items) == 0 {
		return nil, apperr.NoData()
	}

	c := make(Collection, 0, len(items))
	for i, row := range items {
		r, err := parseRow(row)
		if err != nil {
			log.WithError(err).WithField("index", i).Warnf("skipping malformed recipe: %s", row.Get("name").String())
			continue
		}
		c = append(c, r)
	}

	if len(c) == 0 {
		return nil, apperr.MalformedData("No valid recipes found in response")
	}
	return c, nil
}

func parseRow(row gjson.Result) (Recipe, error) {
	if !row.IsObject() {
		return Recipe{}, fmt.Errorf("not an object")
	}

	id, err := uuid.Parse(row.Get("uuid").String())
	if err != nil {
		return Recipe{}, fmt.Errorf("invalid uuid: %w", err)
	}

	name := strings.TrimSpace(row.Get("name").String())
	if name == "" {
		return Recipe{}, fmt.Errorf("recipe name is empty")
	}
	cuisine := strings.TrimSpace(row.Get("cuisine").String())
	if cuisine == "" {
		return Recipe{}, fmt.Errorf("recipe cuisine is empty")
	}

	return Recipe{
		ID:         id,
		Name:       name,
		Cuisine:    cuisine,
		PhotoSmall: absURL(row.Get("photo_url_small")),
		PhotoLarge: absURL(row.Get("photo_url_large")),
		SourceURL:  absURL(row.Get("source_url")),
		YoutubeURL: absURL(row.Get("youtube_url")),
	}, nil
}

func absURL(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	s := strings.TrimSpace(v.String())
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	return s
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
