package qrstyle

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Grayscale(t *testing.T) {
	assert := assert.New(t)

	for _, col := range []color.NRGBA{
		{R: 0x28, G: 0x32, B: 0x0a, A: 0xff},
		{R: 0x80, G: 0xf0, B: 0x10, A: 0x80},
		{R: 0xff, G: 0x00, B: 0x80, A: 0xff},
		{R: 0x00, G: 0x00, B: 0x00, A: 0x00},
	} {
		dst := applyFilters(uniformImage(10, 10, col), &Filters{Grayscale: true})
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				c := dst.NRGBAAt(x, y)
				assert.Equal(c.R, c.G)
				assert.Equal(c.G, c.B)
				assert.Equal(col.A, c.A)
			}
		}
	}
}

func TestFilter_Nil(t *testing.T) {
	src := uniformImage(4, 4, red)
	assert.Same(t, src, applyFilters(src, nil))
	assert.Same(t, src, applyFilters(src, &Filters{}))
	assert.Same(t, src, setOpacity(src, 1))
}

func TestFilter_Adjustments(t *testing.T) {
	assert := assert.New(t)
	src := uniformImage(4, 4, color.NRGBA{R: 100, G: 50, B: 200, A: 0xff})

	c := applyFilters(src, &Filters{Invert: true}).NRGBAAt(0, 0)
	assert.Equal(color.NRGBA{R: 155, G: 205, B: 55, A: 0xff}, c)

	half := 50.0
	c = applyFilters(src, &Filters{BrightnessPct: &half}).NRGBAAt(0, 0)
	assert.Equal(color.NRGBA{R: 50, G: 25, B: 100, A: 0xff}, c)

	double := 200.0
	c = applyFilters(src, &Filters{BrightnessPct: &double}).NRGBAAt(0, 0)
	assert.Equal(color.NRGBA{R: 200, G: 100, B: 255, A: 0xff}, c)

	flat := 0.0
	c = applyFilters(src, &Filters{ContrastPct: &flat}).NRGBAAt(0, 0)
	assert.Equal(color.NRGBA{R: 128, G: 128, B: 128, A: 0xff}, c)
}

func TestFilter_Order(t *testing.T) {
	src := uniformImage(2, 2, color.NRGBA{R: 0xff, A: 0xff})

	// Invert runs before sepia: red turns cyan, then sepia toned.
	got := applyFilters(src, &Filters{Invert: true, Sepia: true}).NRGBAAt(0, 0)
	r, g, b := sepia(0, 1, 1)
	assert.Equal(t, color.NRGBA{R: unit(r), G: unit(g), B: unit(b), A: 0xff}, got)

	// Grayscale runs before invert.
	got = applyFilters(src, &Filters{Grayscale: true, Invert: true}).NRGBAAt(0, 0)
	lum := 1 - grayscale(1, 0, 0)
	assert.Equal(t, color.NRGBA{R: unit(lum), G: unit(lum), B: unit(lum), A: 0xff}, got)
}

func TestFilter_Opacity(t *testing.T) {
	src := uniformImage(2, 2, red)
	got := setOpacity(src, 0.5).NRGBAAt(1, 1)
	assert.Equal(t, color.NRGBA{R: 0xff, A: 128}, got)
	assert.Equal(t, uint8(0), setOpacity(src, 0).NRGBAAt(0, 0).A)
}
