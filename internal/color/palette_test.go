package color

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var swatchRe = regexp.MustCompile(`^hsl\((\d+) (\d+)% (\d+)%\)$`)

func TestPalette_Around(t *testing.T) {
	p := NewPalette(rand.New(rand.NewPCG(1, 2)))

	colors := p.Around(10)
	require.Len(t, colors, PaletteSize)

	wantHues := []int{334, 352, 10, 28, 46}
	for i, c := range colors {
		m := swatchRe.FindStringSubmatch(c)
		require.Len(t, m, 4, c)

		hue, _ := strconv.Atoi(m[1])
		sat, _ := strconv.Atoi(m[2])
		light, _ := strconv.Atoi(m[3])

		assert.Equal(t, wantHues[i], hue)
		assert.GreaterOrEqual(t, sat, 50)
		assert.Less(t, sat, 80)
		assert.GreaterOrEqual(t, light, 40)
		assert.Less(t, light, 70)
	}
}

func TestPalette_GenerateIsSeeded(t *testing.T) {
	a := NewPalette(rand.New(rand.NewPCG(7, 7))).Generate()
	b := NewPalette(rand.New(rand.NewPCG(7, 7))).Generate()

	assert.Equal(t, a, b)
}

func TestPalette_NilSource(t *testing.T) {
	assert.Len(t, NewPalette(nil).Generate(), PaletteSize)
}
