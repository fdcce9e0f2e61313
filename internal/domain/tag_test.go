package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/color"
)

func TestParseTagCategory(t *testing.T) {
	c, ok := ParseTagCategory(" Mood ")
	assert.True(t, ok)
	assert.Equal(t, TagMood, c)

	_, ok = ParseTagCategory("themes")
	assert.False(t, ok)
}

func TestTagSet_UnmarshalDropsUnknownCategories(t *testing.T) {
	var ts TagSet
	err := json.Unmarshal([]byte(`{
		"mood": [{"name": "eerie", "color": "hsl(1, 1%, 1%)"}],
		"themes": ["loss"],
		"scenes": ["storm", "duel"]
	}`), &ts)
	require.NoError(t, err)

	assert.Len(t, ts, 2)
	assert.Equal(t, []string{"eerie"}, ts.Names(TagMood))
	assert.Equal(t, []string{"storm", "duel"}, ts.Names(TagScenes))
	assert.NotContains(t, ts, TagCategory("themes"))
}

func TestTagSet_ColorAlwaysDerived(t *testing.T) {
	var ts TagSet
	require.NoError(t, json.Unmarshal([]byte(`{"mood": [{"name": "eerie", "color": "red"}]}`), &ts))

	assert.Equal(t, color.ForTag("eerie"), ts[TagMood][0].Color)
}

func TestTagSet_AddRemove(t *testing.T) {
	ts := TagSet{}
	require.NoError(t, ts.Add(TagCharacters, "Paul"))
	require.NoError(t, ts.Add(TagCharacters, "Paul"))
	require.NoError(t, ts.Add(TagCharacters, "Chani"))

	assert.Equal(t, []string{"Paul", "Paul", "Chani"}, ts.Names(TagCharacters), "names are not deduplicated")

	assert.True(t, ts.Remove(TagCharacters, "Paul"))
	assert.Equal(t, []string{"Chani"}, ts.Names(TagCharacters))

	assert.False(t, ts.Remove(TagCharacters, "paul"), "removal is case-sensitive")

	assert.True(t, ts.Remove(TagCharacters, "Chani"))
	assert.NotContains(t, ts, TagCharacters)
}

func TestTagSet_AddRejectsUnknownCategory(t *testing.T) {
	ts := TagSet{}
	assert.Error(t, ts.Add(TagCategory("themes"), "loss"))
	assert.Empty(t, ts)
}

func TestTagSet_Normalize(t *testing.T) {
	ts := TagSet{
		TagMood:               {{Name: "calm", Color: "stale"}},
		TagCategory("unused"): {{Name: "x"}},
	}

	ts.Normalize()

	assert.Equal(t, TagSet{TagMood: {NewTag("calm")}}, ts)
}
