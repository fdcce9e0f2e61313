package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/validation"
)

type bookFields struct {
	Title    string `json:"title" validate:"runes=20"`
	Author   string `json:"author" validate:"runes=15"`
	Genre    string `json:"genre,omitempty" validate:"runes=12"`
	Category string `json:"category" validate:"omitempty,tagcategory"`
	Mode     string `json:"mode" validate:"omitempty,oneof=tagsAndDescription storyCoach"`
}

func TestValidator_Valid(t *testing.T) {
	v := validation.New()
	err := v.Validate(bookFields{
		Title:    "The Long Winter",
		Author:   "A. Writer",
		Genre:    "Fantasy",
		Category: "mood",
		Mode:     "storyCoach",
	})
	assert.NoError(t, err)
}

func TestValidator_CountsCharactersNotBytes(t *testing.T) {
	v := validation.New()
	// 20 multi-byte characters is within the title limit.
	assert.NoError(t, v.Validate(bookFields{Title: strings.Repeat("é", 20)}))
	assert.Error(t, v.Validate(bookFields{Title: strings.Repeat("é", 21)}))
}

func TestValidator_FieldDetails(t *testing.T) {
	v := validation.New()

	err := v.Validate(bookFields{
		Title:    strings.Repeat("x", 21),
		Author:   strings.Repeat("x", 16),
		Genre:    strings.Repeat("x", 13),
		Category: "weather",
		Mode:     "poetry",
	})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must not exceed 20 characters", details["title"])
	assert.Equal(t, "must not exceed 15 characters", details["author"])
	assert.Equal(t, "must not exceed 12 characters", details["genre"])
	assert.Equal(t, "must be a known tag category", details["category"])
	assert.Contains(t, details["mode"], "must be one of")
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("category", "characters", "slidecategory"))

	err := v.Var("category", "../etc", "slidecategory")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}
