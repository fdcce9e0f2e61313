package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/storyloom/storyloom-server/internal/color"
)

// TagCategory is one of the fixed groups a book's tags are filed under.
type TagCategory string

// Known tag categories, in display order.
const (
	TagCharacters  TagCategory = "characters"
	TagScenes      TagCategory = "scenes"
	TagSetting     TagCategory = "setting"
	TagTime        TagCategory = "time"
	TagMood        TagCategory = "mood"
	TagConnections TagCategory = "connections"
)

// TagCategories lists every valid category.
var TagCategories = []TagCategory{
	TagCharacters, TagScenes, TagSetting, TagTime, TagMood, TagConnections,
}

// ParseTagCategory validates a category name.
func ParseTagCategory(s string) (TagCategory, bool) {
	c := TagCategory(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Valid reports whether c is a known category.
func (c TagCategory) Valid() bool {
	return slices.Contains(TagCategories, c)
}

// Tag is a free-text label. Color is always color.ForTag(Name); it is
// written out for clients but recomputed whenever a tag is read.
type Tag struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NewTag returns a tag with its derived color.
func NewTag(name string) Tag {
	return Tag{Name: name, Color: color.ForTag(name)}
}

// UnmarshalJSON accepts either {"name": "...", "color": "..."} or a bare
// string. Any stored color is discarded in favour of the derived one.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*t = NewTag(name)
		return nil
	}

	var raw struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode tag: %w", err)
	}
	*t = NewTag(raw.Name)
	return nil
}

// TagSet maps categories to ordered tags. Names are not deduplicated.
type TagSet map[TagCategory][]Tag

// UnmarshalJSON decodes a tag mapping, silently dropping unknown
// categories.
func (ts *TagSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}

	out := make(TagSet, len(raw))
	for key, value := range raw {
		category, ok := ParseTagCategory(key)
		if !ok {
			continue
		}
		var tags []Tag
		if err := json.Unmarshal(value, &tags); err != nil {
			return fmt.Errorf("decode tags %q: %w", key, err)
		}
		out[category] = append(out[category], tags...)
	}
	*ts = out
	return nil
}

// Add appends a tag to category.
func (ts TagSet) Add(category TagCategory, name string) error {
	if !category.Valid() {
		return fmt.Errorf("unknown tag category %q", category)
	}
	ts[category] = append(ts[category], NewTag(name))
	return nil
}

// Remove drops every tag named name from category. It reports whether
// anything was removed.
func (ts TagSet) Remove(category TagCategory, name string) bool {
	before := len(ts[category])
	kept := slices.DeleteFunc(ts[category], func(t Tag) bool { return t.Name == name })
	if len(kept) == 0 {
		delete(ts, category)
	} else {
		ts[category] = kept
	}
	return len(kept) != before
}

// Normalize drops unknown categories and re-derives every color.
func (ts TagSet) Normalize() {
	for category, tags := range ts {
		if !category.Valid() {
			delete(ts, category)
			continue
		}
		for i := range tags {
			tags[i].Color = color.ForTag(tags[i].Name)
		}
	}
}

// Names returns the tag names of category in order.
func (ts TagSet) Names(category TagCategory) []string {
	names := make([]string, 0, len(ts[category]))
	for _, t := range ts[category] {
		names = append(names, t.Name)
	}
	return names
}
