package qrstyle

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/qrstyle/utils"
)

// applyFilters runs the logo filters in their fixed order: blur, brightness,
// contrast, grayscale, invert, sepia. Each step clamps its output to [0, 1].
func applyFilters(src *image.NRGBA, f *Filters) *image.NRGBA {
	if f == nil {
		return src
	}
	dst := src
	if f.BlurPx > 0 {
		dst = imaging.Blur(dst, f.BlurPx)
	}

	brightness := percent(f.BrightnessPct)
	contrast := percent(f.ContrastPct)
	if brightness == 1 && contrast == 1 && !f.Grayscale && !f.Invert && !f.Sepia {
		return dst
	}

	return imaging.AdjustFunc(dst, func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255

		if brightness != 1 {
			r, g, b = clamp01(r*brightness), clamp01(g*brightness), clamp01(b*brightness)
		}
		if contrast != 1 {
			r = clamp01((r-0.5)*contrast + 0.5)
			g = clamp01((g-0.5)*contrast + 0.5)
			b = clamp01((b-0.5)*contrast + 0.5)
		}
		if f.Grayscale {
			lum := grayscale(r, g, b)
			r, g, b = lum, lum, lum
		}
		if f.Invert {
			r, g, b = 1-r, 1-g, 1-b
		}
		if f.Sepia {
			r, g, b = sepia(r, g, b)
		}

		return color.NRGBA{R: unit(r), G: unit(g), B: unit(b), A: c.A}
	})
}

// grayscale returns the luminance of a color.
func grayscale(r, g, b float64) float64 {
	return r*0.299 + g*0.587 + b*0.114
}

func sepia(r, g, b float64) (float64, float64, float64) {
	return clamp01(0.393*r + 0.769*g + 0.189*b),
		clamp01(0.349*r + 0.686*g + 0.168*b),
		clamp01(0.272*r + 0.534*g + 0.131*b)
}

// setOpacity multiplies the alpha channel by opacity.
func setOpacity(src *image.NRGBA, opacity float64) *image.NRGBA {
	if opacity >= 1 {
		return src
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		c.A = unit(float64(c.A) / 255 * opacity)
		return c
	})
}

func percent(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p / 100
}

func clamp01(v float64) float64 {
	return utils.Clamp(v, 0, 1)
}

func unit(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
