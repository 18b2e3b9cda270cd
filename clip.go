package qrstyle

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// ClipRegion is the area logo drawing is constrained to. It is computed once
// per render from the logo shape and reused by the shadow, the plate, the
// logo pixels and the border.
type ClipRegion struct {
	Shape LogoShape
	// Bounding box of the region.
	X, Y, W, H float64
	// Corner radius of rounded regions.
	Radius float64
}

// NewClipRegion returns the region of the given shape centered at (cx, cy)
// with side length side. radius only applies to rounded regions and is
// limited to half the side.
func NewClipRegion(shape LogoShape, cx, cy, side, radius float64) ClipRegion {
	r := ClipRegion{
		Shape: shape,
		X:     cx - side/2,
		Y:     cy - side/2,
		W:     side,
		H:     side,
	}
	if shape == ShapeRounded {
		r.Radius = math.Min(math.Max(radius, 0), side/2)
	}
	return r
}

// Expand grows the region by d on every side, keeping its shape.
func (r ClipRegion) Expand(d float64) ClipRegion {
	if d == 0 {
		return r
	}
	out := ClipRegion{
		Shape: r.Shape,
		X:     r.X - d,
		Y:     r.Y - d,
		W:     r.W + 2*d,
		H:     r.H + 2*d,
	}
	if r.Shape == ShapeRounded {
		out.Radius = math.Min(math.Max(r.Radius+d, 0), math.Min(out.W, out.H)/2)
	}
	return out
}

// Offset returns the region translated by (dx, dy).
func (r ClipRegion) Offset(dx, dy float64) ClipRegion {
	r.X += dx
	r.Y += dy
	return r
}

// Center returns the center of the region.
func (r ClipRegion) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Bounds returns the smallest integer rectangle containing the region.
func (r ClipRegion) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
}

// Contains reports whether the point (x, y) lies inside the region.
func (r ClipRegion) Contains(x, y float64) bool {
	if x < r.X || y < r.Y || x > r.X+r.W || y > r.Y+r.H {
		return false
	}
	switch r.Shape {
	case ShapeCircle:
		cx, cy := r.Center()
		return math.Hypot(x-cx, y-cy) <= r.W/2
	case ShapeRounded:
		rad := r.Radius
		// Distance to the nearest corner circle center, if (x, y) is in a corner square.
		qx := math.Max(math.Max(r.X+rad-x, x-(r.X+r.W-rad)), 0)
		qy := math.Max(math.Max(r.Y+rad-y, y-(r.Y+r.H-rad)), 0)
		return math.Hypot(qx, qy) <= rad
	}
	return true
}

// Path adds the outline of the region to the current path of dc.
func (r ClipRegion) Path(dc *gg.Context) {
	switch r.Shape {
	case ShapeCircle:
		cx, cy := r.Center()
		dc.DrawCircle(cx, cy, r.W/2)
	case ShapeRounded:
		dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, r.Radius)
	default:
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	}
}

// arcSteps is the number of segments approximating a quarter circle of an outline.
const arcSteps = 16

// Outline returns the closed polyline of the region boundary, clockwise,
// starting at its top-left.
func (r ClipRegion) Outline() []gg.Point {
	var pts []gg.Point
	arc := func(cx, cy, rad, from float64) {
		for i := 0; i <= arcSteps; i++ {
			a := from + float64(i)/arcSteps*math.Pi/2
			pts = append(pts, gg.Point{X: cx + rad*math.Cos(a), Y: cy + rad*math.Sin(a)})
		}
	}

	switch r.Shape {
	case ShapeCircle:
		cx, cy := r.Center()
		for q := 0; q < 4; q++ {
			arc(cx, cy, r.W/2, math.Pi+float64(q)*math.Pi/2)
		}
	default:
		rad := r.Radius
		if r.Shape != ShapeRounded {
			rad = 0
		}
		arc(r.X+rad, r.Y+rad, rad, math.Pi)
		arc(r.X+r.W-rad, r.Y+rad, rad, 1.5*math.Pi)
		arc(r.X+r.W-rad, r.Y+r.H-rad, rad, 0)
		arc(r.X+rad, r.Y+r.H-rad, rad, 0.5*math.Pi)
	}
	return pts
}

// pointsAlong returns points evenly spread along the closed polyline pts,
// about step apart. The first point is pts[0].
func pointsAlong(pts []gg.Point, step float64) []gg.Point {
	if len(pts) == 0 || step <= 0 {
		return nil
	}
	closed := append(pts[:len(pts):len(pts)], pts[0])

	var perimeter float64
	for i := 1; i < len(closed); i++ {
		perimeter += closed[i-1].Distance(closed[i])
	}
	n := max(int(math.Round(perimeter/step)), 1)
	spacing := perimeter / float64(n)

	out := make([]gg.Point, 0, n)
	var walked float64
	for i := 1; i < len(closed) && len(out) < n; i++ {
		a, b := closed[i-1], closed[i]
		seg := a.Distance(b)
		for len(out) < n {
			d := float64(len(out))*spacing - walked
			if d > seg {
				break
			}
			t := 0.0
			if seg > 0 {
				t = d / seg
			}
			out = append(out, gg.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
		}
		walked += seg
	}
	return out
}

// Mask returns a w×h alpha mask of the region. Only pixels whose centers lie
// inside the region are set; they carry the anti-aliased coverage of the outline.
func (r ClipRegion) Mask(w, h int) *image.Alpha {
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	r.Path(dc)
	dc.Fill()
	coverage := dc.Image().(*image.RGBA)

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	b := r.Bounds().Intersect(mask.Rect)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !r.Contains(float64(x)+0.5, float64(y)+0.5) {
				continue
			}
			mask.Pix[mask.PixOffset(x, y)] = coverage.Pix[coverage.PixOffset(x, y)+3]
		}
	}
	return mask
}
