package qrstyle

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// ApplyLogo composites the logo image over raster and returns a new raster.
// It is a no-op when logo is nil.
//
// The drawing order is: shadow, plate, logo pixels and border. The logo
// pixels are clipped to the shape of the logo; the plate, the border and
// the shadow follow the same region, expanded by the logo margin when a
// plate is drawn.
func ApplyLogo(raster *image.NRGBA, logo *Logo, img image.Image) (*image.NRGBA, error) {
	if logo == nil {
		return raster, nil
	}
	if img == nil {
		return nil, &RenderError{Kind: ErrLogoLoadFailed, Err: errors.New("missing logo image")}
	}

	w, h := raster.Bounds().Dx(), raster.Bounds().Dy()
	fp := logoFootprint(float64(w), logo)
	region := NewClipRegion(logo.Shape, fp.cx, fp.cy, fp.side, logo.RadiusPx)

	// The outline shared by the shadow and the border.
	outline := region
	if logo.BackgroundColor != nil {
		outline = region.Expand(logo.MarginPx)
	}

	dc := gg.NewContextForImage(raster)

	if sh := logo.Shadow; sh != nil {
		drawShadow(dc, outline.Offset(sh.OffsetX, sh.OffsetY), sh, w, h)
	}

	if bg := logo.BackgroundColor; bg != nil {
		dc.SetColor(*bg)
		outline.Path(dc)
		dc.Fill()
	}

	pixels := prepareLogo(img, logo, fp.side)
	if err := dc.SetMask(region.Mask(w, h)); err != nil {
		return nil, fmt.Errorf("could not set the logo clip mask: %w", err)
	}
	dc.DrawImageAnchored(pixels, int(math.Round(fp.cx)), int(math.Round(fp.cy)), 0.5, 0.5)
	dc.ResetClip()

	if b := logo.Border; b != nil {
		drawBorder(dc, outline, b)
	}

	return imgToNRGBA(dc.Image()), nil
}

// prepareLogo scales the logo to fit into the footprint, then rotates,
// filters and fades it.
func prepareLogo(img image.Image, logo *Logo, side float64) *image.NRGBA {
	src := imgToNRGBA(img)
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()

	scale := side / float64(max(sw, sh))
	tw := max(int(math.Round(float64(sw)*scale)), 1)
	th := max(int(math.Round(float64(sh)*scale)), 1)
	if tw != sw || th != sh {
		src = imaging.Resize(src, tw, th, imaging.Lanczos)
	}

	if rot := math.Mod(logo.RotationDeg, 360); rot != 0 {
		// imaging rotates counter-clockwise.
		src = imaging.Rotate(src, -rot, color.Transparent)
	}
	src = applyFilters(src, logo.Filters)
	return setOpacity(src, logo.Opacity)
}

func drawShadow(dc *gg.Context, region ClipRegion, sh *Shadow, w, h int) {
	mask := region.Mask(w, h)
	stackBlur(mask, int(math.Round(sh.BlurPx)))

	dst := dc.Image().(*image.RGBA)
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(sh.Color), image.Point{}, mask, image.Point{}, draw.Over)
}

func drawBorder(dc *gg.Context, outline ClipRegion, b *Border) {
	dc.Push()
	defer dc.Pop()

	dc.SetColor(b.Color)
	dc.SetLineWidth(b.WidthPx)
	switch b.Style {
	case BorderDashed:
		dc.SetLineCapButt()
		dc.SetDash(3*b.WidthPx, 2*b.WidthPx)
	case BorderDotted:
		// Round dots of the border width, two widths apart.
		for _, p := range pointsAlong(outline.Outline(), 2*b.WidthPx) {
			dc.DrawCircle(p.X, p.Y, b.WidthPx/2)
		}
		dc.Fill()
		return
	}
	outline.Path(dc)
	dc.Stroke()
}
