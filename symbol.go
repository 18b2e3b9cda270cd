package qrstyle

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/fogleman/gg"
	qrcode "github.com/skip2/go-qrcode"
)

// finderSize is the side of a finder pattern in modules.
const finderSize = 7

// SymbolRequest holds everything needed to draw the raw symbol.
type SymbolRequest struct {
	Payload       string
	SizePx        int
	MarginModules int
	Level         ECLevel
	Dark, Light   Color
	DotStyle      DotStyle
	CornerStyle   CornerStyle
}

// SymbolRenderer turns a payload into a square raster of SizePx pixels.
// A payload exceeding the capacity of the level is reported as a
// *SymbolError wrapping ErrPayloadTooLarge.
type SymbolRenderer interface {
	Render(ctx context.Context, req SymbolRequest) (*image.NRGBA, error)
}

// ModuleRenderer builds the module matrix with go-qrcode and draws every
// module with the requested dot and corner styles.
type ModuleRenderer struct{}

var _ SymbolRenderer = ModuleRenderer{}

// Render implements SymbolRenderer.
func (ModuleRenderer) Render(ctx context.Context, req SymbolRequest) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qr, err := qrcode.New(req.Payload, recoveryLevel(req.Level))
	if err != nil {
		if strings.Contains(err.Error(), "too long") {
			return nil, &SymbolError{Level: req.Level, Err: ErrPayloadTooLarge}
		}
		return nil, &SymbolError{Level: req.Level, Err: err}
	}
	qr.DisableBorder = true
	modules := qr.Bitmap()

	n := len(modules)
	total := n + 2*req.MarginModules
	cell := float64(req.SizePx) / float64(total)
	if cell < 1 {
		return nil, &SymbolError{
			Level: req.Level,
			Err:   fmt.Errorf("%w: %d modules do not fit into %dpx", ErrPayloadTooLarge, total, req.SizePx),
		}
	}

	dc := gg.NewContext(req.SizePx, req.SizePx)
	if req.Light.A > 0 {
		dc.SetColor(req.Light)
		dc.Clear()
	}
	dc.SetColor(req.Dark)

	m := &moduleGrid{modules: modules, n: n, cell: cell, margin: req.MarginModules}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !modules[y][x] || m.inFinder(x, y) {
				continue
			}
			m.drawDot(dc, req.DotStyle, x, y)
		}
	}
	dc.Fill()

	for _, corner := range [][2]int{{0, 0}, {n - finderSize, 0}, {0, n - finderSize}} {
		m.drawFinder(dc, req.CornerStyle, corner[0], corner[1])
	}

	return imgToNRGBA(dc.Image()), nil
}

func recoveryLevel(l ECLevel) qrcode.RecoveryLevel {
	switch l {
	case ECLevelL:
		return qrcode.Low
	case ECLevelQ:
		return qrcode.High
	case ECLevelH:
		return qrcode.Highest
	}
	return qrcode.Medium
}

type moduleGrid struct {
	modules [][]bool
	n       int
	cell    float64
	margin  int
}

// edge returns the pixel coordinate of module boundary i, snapped to the pixel grid.
func (m *moduleGrid) edge(i int) float64 {
	return math.Round(float64(i+m.margin) * m.cell)
}

func (m *moduleGrid) dark(x, y int) bool {
	if x < 0 || y < 0 || x >= m.n || y >= m.n {
		return false
	}
	return m.modules[y][x] && !m.inFinder(x, y)
}

func (m *moduleGrid) inFinder(x, y int) bool {
	far := m.n - finderSize
	return (x < finderSize && y < finderSize) ||
		(x >= far && y < finderSize) ||
		(x < finderSize && y >= far)
}

// drawDot adds the path of the module at (x, y) to the current path.
func (m *moduleGrid) drawDot(dc *gg.Context, style DotStyle, x, y int) {
	x0, y0 := m.edge(x), m.edge(y)
	x1, y1 := m.edge(x+1), m.edge(y+1)
	w, h := x1-x0, y1-y0
	cx, cy := x0+w/2, y0+h/2

	switch style {
	case DotDots:
		dc.DrawCircle(cx, cy, 0.45*m.cell)
	case DotRounded:
		r := math.Min(w, h) / 2
		up, down := m.dark(x, y-1), m.dark(x, y+1)
		left, right := m.dark(x-1, y), m.dark(x+1, y)
		roundedRect(dc, x0, y0, w, h, [4]float64{
			cornerRadius(!up && !left, r),
			cornerRadius(!up && !right, r),
			cornerRadius(!down && !right, r),
			cornerRadius(!down && !left, r),
		})
	case DotClassy:
		r := math.Min(w, h) / 2
		roundedRect(dc, x0, y0, w, h, [4]float64{
			cornerRadius(!m.dark(x, y-1) && !m.dark(x-1, y), r),
			0,
			cornerRadius(!m.dark(x, y+1) && !m.dark(x+1, y), r),
			0,
		})
	case DotSharp:
		dc.NewSubPath()
		dc.MoveTo(cx, y0)
		dc.LineTo(x1, cy)
		dc.LineTo(cx, y1)
		dc.LineTo(x0, cy)
		dc.ClosePath()
	default:
		dc.DrawRectangle(x0, y0, w, h)
	}
}

// drawFinder draws the 7x7 finder pattern whose top-left module is (x, y).
func (m *moduleGrid) drawFinder(dc *gg.Context, style CornerStyle, x, y int) {
	ox0, oy0 := m.edge(x), m.edge(y)
	ox1, oy1 := m.edge(x+finderSize), m.edge(y+finderSize)
	ix0, iy0 := m.edge(x+1), m.edge(y+1)
	ix1, iy1 := m.edge(x+finderSize-1), m.edge(y+finderSize-1)
	ex0, ey0 := m.edge(x+2), m.edge(y+2)
	ex1, ey1 := m.edge(x+finderSize-2), m.edge(y+finderSize-2)
	ring := ix0 - ox0

	dc.SetFillRuleEvenOdd()
	switch style {
	case CornerDots:
		cx, cy := (ox0+ox1)/2, (oy0+oy1)/2
		dc.DrawCircle(cx, cy, (ox1-ox0)/2)
		dc.DrawCircle(cx, cy, (ix1-ix0)/2)
		dc.Fill()
		dc.DrawCircle(cx, cy, (ex1-ex0)/2)
	case CornerRounded:
		dc.DrawRoundedRectangle(ox0, oy0, ox1-ox0, oy1-oy0, 2*ring)
		dc.DrawRoundedRectangle(ix0, iy0, ix1-ix0, iy1-iy0, 1.5*ring)
		dc.Fill()
		dc.DrawRoundedRectangle(ex0, ey0, ex1-ex0, ey1-ey0, ring)
	default:
		dc.DrawRectangle(ox0, oy0, ox1-ox0, oy1-oy0)
		dc.DrawRectangle(ix0, iy0, ix1-ix0, iy1-iy0)
		dc.Fill()
		dc.DrawRectangle(ex0, ey0, ex1-ex0, ey1-ey0)
	}
	dc.Fill()
	dc.SetFillRuleWinding()
}

func cornerRadius(free bool, r float64) float64 {
	if free {
		return r
	}
	return 0
}

// roundedRect adds a rectangle whose corners (top-left, top-right,
// bottom-right, bottom-left) have individual radii.
func roundedRect(dc *gg.Context, x, y, w, h float64, r [4]float64) {
	dc.NewSubPath()
	corner := func(cx, cy, radius, from float64, px, py float64) {
		if radius <= 0 {
			dc.LineTo(px, py)
			return
		}
		dc.DrawArc(cx, cy, radius, from, from+math.Pi/2)
	}
	corner(x+r[0], y+r[0], r[0], math.Pi, x, y)
	corner(x+w-r[1], y+r[1], r[1], 1.5*math.Pi, x+w, y)
	corner(x+w-r[2], y+h-r[2], r[2], 0, x+w, y+h)
	corner(x+r[3], y+h-r[3], r[3], 0.5*math.Pi, x, y+h)
	dc.ClosePath()
}
