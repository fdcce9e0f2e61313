package domain

// Drawing is everything the drawing board keeps for one slide. Any field may
// be empty.
type Drawing struct {
	Canvas  string   `json:"canvas,omitempty"`
	AIImage string   `json:"aiImage,omitempty"`
	Prompt  string   `json:"prompt,omitempty"`
	Palette []string `json:"palette,omitempty"`
}

// Empty reports whether nothing has been saved.
func (d Drawing) Empty() bool {
	return d.Canvas == "" && d.AIImage == "" && d.Prompt == "" && len(d.Palette) == 0
}
