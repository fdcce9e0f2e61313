package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Default slide categories offered by the storyboard.
const (
	CategoryTheme      = "theme"
	CategoryCharacters = "characters"
	CategoryScene      = "scene"
	CategorySetting    = "setting"
)

// DefaultSlideCategories lists the categories every storyboard starts with.
// Other well-formed names are accepted as new categories.
var DefaultSlideCategories = []string{
	CategoryTheme, CategoryCharacters, CategoryScene, CategorySetting,
}

// StagePresets are the narrative-arc stages every new slide starts with.
var StagePresets = []string{
	"Exposition", "Rising Action", "Climax", "Falling Action", "Resolution",
}

// PlaceholderSlideID is the id of the synthesized "add new" slide.
const PlaceholderSlideID = "placeholder-1"

var categoryRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}_-]{0,63}$`)

// NormalizeSlideCategory trims and case-folds a category name and rejects
// names that cannot be used as part of a storage key.
func NormalizeSlideCategory(name string) (string, error) {
	c := cases.Fold().String(strings.TrimSpace(name))
	if !categoryRe.MatchString(c) {
		return "", fmt.Errorf("invalid slide category %q", name)
	}
	return c, nil
}

// Slide is a top-level story unit within a category.
type Slide struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	CoverImage  string  `json:"coverImage,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Drawing     string  `json:"drawing,omitempty"`
	Children    []Stage `json:"children"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

// Stage is one step of a slide's narrative arc.
type Stage struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CoverImage  string     `json:"coverImage,omitempty"`
	SubStages   []SubStage `json:"subStages"`
}

// SubStage is a free-form beat inside a stage.
type SubStage struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CoverImage string `json:"coverImage,omitempty"`
}

// PlaceholderSlide returns the UI-only "add new" slide for category.
// It must never be stored.
func PlaceholderSlide(category string) Slide {
	return Slide{
		ID:          PlaceholderSlideID,
		Title:       "Add new " + category,
		Placeholder: true,
		Children:    []Stage{},
	}
}

// Stage returns the stage with the given id.
func (s *Slide) Stage(id string) (*Stage, bool) {
	i := slices.IndexFunc(s.Children, func(st Stage) bool { return st.ID == id })
	if i < 0 {
		return nil, false
	}
	return &s.Children[i], true
}

// RemoveStage deletes the stage with the given id and reports whether it
// existed.
func (s *Slide) RemoveStage(id string) bool {
	before := len(s.Children)
	s.Children = slices.DeleteFunc(s.Children, func(st Stage) bool { return st.ID == id })
	return len(s.Children) != before
}

// SubStage returns the sub-stage with the given id.
func (st *Stage) SubStage(id string) (*SubStage, bool) {
	i := slices.IndexFunc(st.SubStages, func(ss SubStage) bool { return ss.ID == id })
	if i < 0 {
		return nil, false
	}
	return &st.SubStages[i], true
}

// RemoveSubStage deletes the sub-stage with the given id and reports whether
// it existed.
func (st *Stage) RemoveSubStage(id string) bool {
	before := len(st.SubStages)
	st.SubStages = slices.DeleteFunc(st.SubStages, func(ss SubStage) bool { return ss.ID == id })
	return len(st.SubStages) != before
}

// Normalize replaces nil child slices with empty ones so stored trees always
// carry arrays.
func (s *Slide) Normalize() {
	if s.Children == nil {
		s.Children = []Stage{}
	}
	for i := range s.Children {
		if s.Children[i].SubStages == nil {
			s.Children[i].SubStages = []SubStage{}
		}
	}
}
