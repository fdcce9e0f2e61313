// Package color derives display colors for tags and drawing palettes.
package color

import (
	"fmt"
	"unicode/utf16"
)

// ForTag returns the display color for a tag name as "hsl(H, 70%, 75%)".
//
// Every editor computes this independently, so the fold has to match the
// browser clients exactly: it walks UTF-16 code units and mixes
// c + ((h << 5) - h), where the shift sees h truncated to 32 bits but the
// subtraction uses the untruncated running value. The hue is |h| mod 360.
func ForTag(name string) string {
	return fmt.Sprintf("hsl(%d, 70%%, 75%%)", Hue(name))
}

// Hue returns the hue component of ForTag, in [0, 360).
func Hue(name string) int {
	var h int64
	for _, c := range utf16.Encode([]rune(name)) {
		shifted := int64(int32(uint32(h) << 5))
		h = int64(c) + shifted - h
	}
	if h < 0 {
		h = -h
	}
	return int(h % 360)
}
