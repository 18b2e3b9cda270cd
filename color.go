package qrstyle

import (
	"image"
	"image/draw"
	"math"

	"github.com/esimov/qrstyle/imop"
	"github.com/fogleman/gg"
)

// ApplyColor paints the gradient of s over the dark modules of raw.
//
// Without a gradient the symbol renderer already drew the final colors and
// raw is returned as is. With a gradient, raw must hold opaque ink on a
// transparent background: the gradient is kept where the ink is (DstIn) and
// the result is flattened over the background (SrcOver), so light modules
// end up exactly equal to s.Background.
func ApplyColor(raw *image.NRGBA, s Style) *image.NRGBA {
	if s.Gradient == nil {
		return raw
	}
	bounds := raw.Bounds().Sub(raw.Bounds().Min)
	fill := gradientFill(bounds.Dx(), bounds.Dy(), s.Gradient)

	op := imop.InitOp()
	op.Set(imop.DstIn)
	masked := op.Draw(nil, raw, fill)

	canvas := image.NewNRGBA(bounds)
	draw.Draw(canvas, bounds, image.NewUniform(s.Background), image.Point{}, draw.Src)

	op.Set(imop.SrcOver)
	return op.Draw(nil, masked.Img, canvas).Img
}

// gradientFill returns a w×h canvas filled with the gradient.
func gradientFill(w, h int, g *Gradient) *image.NRGBA {
	cx, cy := float64(w)/2, float64(h)/2

	var grad gg.Gradient
	switch g.Kind {
	case GradientRadial:
		grad = gg.NewRadialGradient(cx, cy, 0, cx, cy, math.Hypot(cx, cy))
	default:
		rad := gg.Radians(g.Angle)
		dx, dy := math.Cos(rad), math.Sin(rad)
		// The gradient line crosses the center and reaches the corners.
		half := (math.Abs(float64(w)*dx) + math.Abs(float64(h)*dy)) / 2
		grad = gg.NewLinearGradient(cx-dx*half, cy-dy*half, cx+dx*half, cy+dy*half)
	}
	grad.AddColorStop(0, g.Start)
	grad.AddColorStop(1, g.End)

	dc := gg.NewContext(w, h)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	return imgToNRGBA(dc.Image())
}
