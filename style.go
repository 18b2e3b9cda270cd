package qrstyle

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/esimov/qrstyle/utils"
)

// Size and margin bounds of the rendered symbol.
const (
	MinSizePx        = 100
	MaxSizePx        = 1000
	MaxMarginModules = 20
)

// Defaults used by DefaultStyle and DefaultLogo.
const (
	DefaultSizePx        = 300
	DefaultMarginModules = 4
	DefaultLogoSizePct   = 20
	DefaultLogoRadiusPx  = 10
)

// ECLevel is the error correction level of the symbol.
type ECLevel uint8

const (
	ECLevelL ECLevel = iota
	ECLevelM
	ECLevelQ
	ECLevelH
)

var ecLevelNames = [...]string{"L", "M", "Q", "H"}

// maxLogoCover is the largest fraction of the symbol side a logo plate may cover.
// The covered area stays below the recovery capacity of each level.
var maxLogoCover = [...]float64{0.20, 0.25, 0.30, 0.35}

func (l ECLevel) String() string {
	if int(l) < len(ecLevelNames) {
		return ecLevelNames[l]
	}
	return fmt.Sprintf("ECLevel(%d)", uint8(l))
}

// ParseECLevel parses an error correction level by letter (L, M, Q, H) or name.
func ParseECLevel(s string) (ECLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "low":
		return ECLevelL, nil
	case "m", "medium":
		return ECLevelM, nil
	case "q", "quartile":
		return ECLevelQ, nil
	case "h", "high":
		return ECLevelH, nil
	}
	return 0, fmt.Errorf("unknown error correction level %q", s)
}

func (l ECLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *ECLevel) UnmarshalText(text []byte) error {
	v, err := ParseECLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Color is a non-premultiplied RGBA color. Its text form is a hex string
// (#rgb, #rgba, #rrggbb or #rrggbbaa).
type Color color.NRGBA

// Hex parses a hex color string.
func Hex(s string) (Color, error) {
	c, err := utils.HexToNRGBA(s)
	return Color(c), err
}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) { return color.NRGBA(c).RGBA() }

// NRGBA returns c as a color.NRGBA.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA(c) }

func (c Color) String() string { return utils.NRGBAToHex(color.NRGBA(c)) }

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	v, err := Hex(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var (
	Black       = Color{A: 0xff}
	White       = Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Transparent = Color{}
)

// DotStyle is the shape of the data modules.
type DotStyle string

const (
	DotSquare  DotStyle = "square"
	DotDots    DotStyle = "dots"
	DotRounded DotStyle = "rounded"
	DotClassy  DotStyle = "classy"
	DotSharp   DotStyle = "sharp"
)

// CornerStyle is the shape of the three finder patterns.
type CornerStyle string

const (
	CornerSquare  CornerStyle = "square"
	CornerDots    CornerStyle = "dots"
	CornerRounded CornerStyle = "rounded"
)

// GradientKind selects between a linear and a radial gradient.
type GradientKind string

const (
	GradientLinear GradientKind = "linear"
	GradientRadial GradientKind = "radial"
)

// Gradient fills the dark modules from Start to End. Angle is in degrees,
// 0 runs left to right and positive values turn clockwise. It is ignored
// by radial gradients, which grow from the canvas center to its corners.
type Gradient struct {
	Kind  GradientKind `json:"kind"`
	Start Color        `json:"start"`
	End   Color        `json:"end"`
	Angle float64      `json:"angle,omitempty"`
}

// LogoShape is the clip shape of the logo.
type LogoShape string

const (
	ShapeSquare  LogoShape = "square"
	ShapeCircle  LogoShape = "circle"
	ShapeRounded LogoShape = "rounded"
)

// BorderStyle is the stroke pattern of the logo border.
type BorderStyle string

const (
	BorderSolid  BorderStyle = "solid"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
)

// Border is the stroke drawn around the logo outline.
type Border struct {
	WidthPx float64     `json:"widthPx"`
	Color   Color       `json:"color"`
	Style   BorderStyle `json:"style,omitempty"`
}

// Shadow is a blurred silhouette of the logo outline drawn under it.
type Shadow struct {
	Color   Color   `json:"color"`
	BlurPx  float64 `json:"blurPx"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Position is the logo center in percent of the symbol size.
type Position struct {
	XPct float64 `json:"xPct"`
	YPct float64 `json:"yPct"`
}

// Filters are applied to the logo pixels in a fixed order:
// blur, brightness, contrast, grayscale, invert, sepia.
// A nil percentage means 100 (unchanged).
type Filters struct {
	BlurPx        float64  `json:"blurPx,omitempty"`
	BrightnessPct *float64 `json:"brightnessPct,omitempty"`
	ContrastPct   *float64 `json:"contrastPct,omitempty"`
	Grayscale     bool     `json:"grayscale,omitempty"`
	Invert        bool     `json:"invert,omitempty"`
	Sepia         bool     `json:"sepia,omitempty"`
}

// Logo describes the image placed over the symbol.
type Logo struct {
	ImageRef        string    `json:"image"`
	SizePct         float64   `json:"sizePct"`
	MarginPx        float64   `json:"marginPx"`
	Shape           LogoShape `json:"shape"`
	RadiusPx        float64   `json:"radiusPx"`
	BackgroundColor *Color    `json:"backgroundColor,omitempty"`
	Border          *Border   `json:"border,omitempty"`
	Shadow          *Shadow   `json:"shadow,omitempty"`
	Opacity         float64   `json:"opacity"`
	RotationDeg     float64   `json:"rotationDeg"`
	Position        Position  `json:"position"`
	Filters         *Filters  `json:"filters,omitempty"`
}

// DefaultLogo returns a logo with the documented defaults for the image at ref.
func DefaultLogo(ref string) Logo {
	return Logo{
		ImageRef: ref,
		SizePct:  DefaultLogoSizePct,
		Shape:    ShapeSquare,
		RadiusPx: DefaultLogoRadiusPx,
		Opacity:  1,
		Position: Position{XPct: 50, YPct: 50},
	}
}

// UnmarshalJSON fills the fields missing from data with their defaults.
func (l *Logo) UnmarshalJSON(data []byte) error {
	type alias Logo
	v := alias(DefaultLogo(""))
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Logo(v)
	return nil
}

// Style holds every visual parameter of a render. It is used by value;
// the optional parts are pointers and must not be modified once shared.
type Style struct {
	SizePx          int         `json:"size"`
	MarginModules   int         `json:"margin"`
	ErrorCorrection ECLevel     `json:"errorCorrection"`
	Foreground      Color       `json:"foreground"`
	Background      Color       `json:"background"`
	Gradient        *Gradient   `json:"gradient,omitempty"`
	DotStyle        DotStyle    `json:"dotStyle"`
	CornerStyle     CornerStyle `json:"cornerStyle"`
	Logo            *Logo       `json:"logo,omitempty"`
}

// DefaultStyle returns a 300px black on white symbol with medium error correction.
func DefaultStyle() Style {
	return Style{
		SizePx:          DefaultSizePx,
		MarginModules:   DefaultMarginModules,
		ErrorCorrection: ECLevelM,
		Foreground:      Black,
		Background:      White,
		DotStyle:        DotSquare,
		CornerStyle:     CornerSquare,
	}
}

// UnmarshalJSON fills the fields missing from data with their defaults.
func (s *Style) UnmarshalJSON(data []byte) error {
	type alias Style
	v := alias(DefaultStyle())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Style(v)
	return nil
}

// Validate reports the first out of range value as a *RenderError of kind
// ErrInvalidStyle. Nothing is corrected.
func (s Style) Validate() error {
	if s.SizePx < MinSizePx || s.SizePx > MaxSizePx {
		return invalidStyle("size %dpx out of range [%d, %d]", s.SizePx, MinSizePx, MaxSizePx)
	}
	if s.MarginModules < 0 || s.MarginModules > MaxMarginModules {
		return invalidStyle("margin %d out of range [0, %d]", s.MarginModules, MaxMarginModules)
	}
	if int(s.ErrorCorrection) >= len(ecLevelNames) {
		return invalidStyle("unknown error correction level %v", s.ErrorCorrection)
	}
	switch s.DotStyle {
	case "", DotSquare, DotDots, DotRounded, DotClassy, DotSharp:
	default:
		return invalidStyle("unknown dot style %q", s.DotStyle)
	}
	switch s.CornerStyle {
	case "", CornerSquare, CornerDots, CornerRounded:
	default:
		return invalidStyle("unknown corner style %q", s.CornerStyle)
	}
	if g := s.Gradient; g != nil {
		if g.Kind != GradientLinear && g.Kind != GradientRadial {
			return invalidStyle("unknown gradient kind %q", g.Kind)
		}
		if !isFinite(g.Angle) {
			return invalidStyle("gradient angle must be finite")
		}
	}
	if s.Logo != nil {
		return s.validateLogo()
	}
	return nil
}

func (s Style) validateLogo() error {
	l := s.Logo
	if strings.TrimSpace(l.ImageRef) == "" {
		return invalidStyle("logo image reference is empty")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"sizePct", l.SizePct},
		{"marginPx", l.MarginPx},
		{"radiusPx", l.RadiusPx},
		{"opacity", l.Opacity},
		{"rotationDeg", l.RotationDeg},
		{"xPct", l.Position.XPct},
		{"yPct", l.Position.YPct},
	} {
		if !isFinite(f.v) {
			return invalidStyle("logo %s must be finite", f.name)
		}
	}
	switch l.Shape {
	case ShapeSquare, ShapeCircle, ShapeRounded:
	default:
		return invalidStyle("unknown logo shape %q", l.Shape)
	}
	if l.MarginPx < 0 || l.RadiusPx < 0 {
		return invalidStyle("logo margin and radius must not be negative")
	}
	if l.Opacity < 0 || l.Opacity > 1 {
		return invalidStyle("logo opacity %v out of range [0, 1]", l.Opacity)
	}
	if l.Position.XPct < 0 || l.Position.XPct > 100 || l.Position.YPct < 0 || l.Position.YPct > 100 {
		return invalidStyle("logo position (%v%%, %v%%) out of range [0, 100]", l.Position.XPct, l.Position.YPct)
	}
	if b := l.Border; b != nil {
		if !(b.WidthPx > 0) || !isFinite(b.WidthPx) {
			return invalidStyle("logo border width must be positive")
		}
		switch b.Style {
		case "", BorderSolid, BorderDashed, BorderDotted:
		default:
			return invalidStyle("unknown logo border style %q", b.Style)
		}
	}
	if sh := l.Shadow; sh != nil {
		if sh.BlurPx < 0 || !isFinite(sh.BlurPx) || !isFinite(sh.OffsetX) || !isFinite(sh.OffsetY) {
			return invalidStyle("invalid logo shadow")
		}
	}
	if f := l.Filters; f != nil {
		if f.BlurPx < 0 || !isFinite(f.BlurPx) {
			return invalidStyle("logo blur must not be negative")
		}
		if p := f.BrightnessPct; p != nil && (*p < 0 || !isFinite(*p)) {
			return invalidStyle("logo brightness must not be negative")
		}
		if p := f.ContrastPct; p != nil && (*p < 0 || !isFinite(*p)) {
			return invalidStyle("logo contrast must not be negative")
		}
	}

	fp := logoFootprint(float64(s.SizePx), l)
	if fp.side < 1 {
		return invalidStyle("logo size %v%% is smaller than one pixel", l.SizePct)
	}
	cover := (fp.side + 2*l.MarginPx) / float64(s.SizePx)
	if limit := maxLogoCover[s.ErrorCorrection]; cover > limit {
		return invalidStyle("logo covers %.1f%% of the symbol side, at most %.0f%% is scannable with error correction %v",
			cover*100, limit*100, s.ErrorCorrection)
	}
	half := fp.side/2 + l.MarginPx
	size := float64(s.SizePx)
	if fp.cx-half < 0 || fp.cy-half < 0 || fp.cx+half > size || fp.cy+half > size {
		return invalidStyle("logo at (%v%%, %v%%) does not fit inside the symbol", l.Position.XPct, l.Position.YPct)
	}
	return nil
}

// footprint is the logo square in canvas pixels.
type footprint struct {
	cx, cy float64
	side   float64
}

func logoFootprint(size float64, l *Logo) footprint {
	return footprint{
		cx:   size * l.Position.XPct / 100,
		cy:   size * l.Position.YPct / 100,
		side: size * l.SizePct / 100,
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
