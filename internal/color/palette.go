package color

import (
	"fmt"
	"math/rand/v2"
)

// PaletteSize is the number of swatches in a generated palette.
const PaletteSize = 5

// Palette generates a set of analogous colors for the drawing board.
type Palette struct {
	rng *rand.Rand
}

// NewPalette returns a Palette drawing from rng. A nil rng uses a randomly
// seeded source.
func NewPalette(rng *rand.Rand) *Palette {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Palette{rng: rng}
}

// Generate returns PaletteSize colors spaced 18 degrees apart around a random
// base hue, formatted as CSS "hsl(H S% L%)".
func (p *Palette) Generate() []string {
	return p.Around(p.rng.IntN(360))
}

// Around returns PaletteSize colors centred on baseHue.
func (p *Palette) Around(baseHue int) []string {
	out := make([]string, 0, PaletteSize)
	for i := range PaletteSize {
		hue := ((baseHue+(i-2)*18)%360 + 360) % 360
		sat := 50 + p.rng.IntN(30)
		light := 40 + p.rng.IntN(30)
		out = append(out, fmt.Sprintf("hsl(%d %d%% %d%%)", hue, sat, light))
	}
	return out
}
