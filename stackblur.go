// Stack blur over a single alpha plane, after the algorithm described here:
// http://incubator.quasimondo.com/processing/fast_blur_deluxe.php

package qrstyle

import (
	"image"

	"github.com/esimov/qrstyle/utils"
)

// stackBlur blurs the alpha plane in place. Each pass weighs the neighbours
// of a pixel with a triangle of the given radius; edges are clamped.
func stackBlur(img *image.Alpha, radius int) {
	if radius < 1 {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]uint8, utils.Max(w, h))

	for y := 0; y < h; y++ {
		blurLine(img.Pix, y*img.Stride, 1, w, radius, out)
	}
	for x := 0; x < w; x++ {
		blurLine(img.Pix, x, img.Stride, h, radius, out)
	}
}

// blurLine blurs n values of pix starting at off and step apart.
func blurLine(pix []uint8, off, step, n, radius int, out []uint8) {
	at := func(i int) uint32 {
		return uint32(pix[off+utils.Clamp(i, 0, n-1)*step])
	}
	div := uint32((radius + 1) * (radius + 1))

	// sumOut holds the values left of (and including) the current pixel,
	// sumIn the ones on its right.
	var sum, sumIn, sumOut uint32
	for i := -radius; i <= 0; i++ {
		v := at(i)
		sum += v * uint32(radius+1+i)
		sumOut += v
	}
	for i := 1; i <= radius; i++ {
		v := at(i)
		sum += v * uint32(radius+1-i)
		sumIn += v
	}

	for x := 0; x < n; x++ {
		out[x] = uint8((sum + div/2) / div)

		sum -= sumOut
		sumOut -= at(x - radius)
		sumIn += at(x + radius + 1)
		sum += sumIn

		mid := at(x + 1)
		sumOut += mid
		sumIn -= mid
	}

	for x := 0; x < n; x++ {
		pix[off+x*step] = out[x]
	}
}
