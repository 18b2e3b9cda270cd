// Package imop implements the Porter-Duff compositing operators over NRGBA images.
package imop

import (
	"image"
	"math"

	"github.com/esimov/qrstyle/utils"
)

const (
	Clear   = "clear"
	Copy    = "copy"
	Dst     = "dst"
	SrcOver = "src_over"
	DstOver = "dst_over"
	SrcIn   = "src_in"
	DstIn   = "dst_in"
	SrcOut  = "src_out"
	DstOut  = "dst_out"
	SrcAtop = "src_atop"
	DstAtop = "dst_atop"
	Xor     = "xor"
)

// Bitmap holds the result of a composite operation.
type Bitmap struct {
	Img *image.NRGBA
}

// Composite draws a source image over a destination (backdrop) image
// using the currently selected operator.
type Composite struct {
	current string
	ops     []string
}

func NewBitmap(rect image.Rectangle) *Bitmap {
	return &Bitmap{
		Img: image.NewNRGBA(rect),
	}
}

// InitOp returns a Composite using SrcOver.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops: []string{
			Clear,
			Copy,
			Dst,
			SrcOver,
			DstOver,
			SrcIn,
			DstIn,
			SrcOut,
			DstOut,
			SrcAtop,
			DstAtop,
			Xor,
		},
	}
}

// Set selects the operator. Unknown operators are ignored.
func (op *Composite) Set(cop string) {
	if utils.Contains(op.ops, cop) {
		op.current = cop
	}
}

// Get returns the selected operator.
func (op *Composite) Get() string {
	return op.current
}

// factors returns the Porter-Duff source and destination factors for the
// given source and destination alphas.
func (op *Composite) factors(as, ad float64) (fa, fb float64) {
	switch op.current {
	case Clear:
		return 0, 0
	case Copy:
		return 1, 0
	case Dst:
		return 0, 1
	case DstOver:
		return 1 - ad, 1
	case SrcIn:
		return ad, 0
	case DstIn:
		return 0, as
	case SrcOut:
		return 1 - ad, 0
	case DstOut:
		return 0, 1 - as
	case SrcAtop:
		return ad, 1 - as
	case DstAtop:
		return 1 - ad, as
	case Xor:
		return 1 - ad, 1 - as
	}
	return 1, 1 - as
}

// Draw composites src over dst into bitmap. The three images are addressed
// relative to their own origins, over the intersection of their sizes.
// A nil bitmap is allocated with the bounds of src and returned.
func (op *Composite) Draw(bitmap *Bitmap, src, dst *image.NRGBA) *Bitmap {
	if bitmap == nil {
		bitmap = NewBitmap(src.Bounds().Sub(src.Bounds().Min))
	}
	out := bitmap.Img
	dx := utils.Min(src.Bounds().Dx(), utils.Min(dst.Bounds().Dx(), out.Bounds().Dx()))
	dy := utils.Min(src.Bounds().Dy(), utils.Min(dst.Bounds().Dy(), out.Bounds().Dy()))

	for y := 0; y < dy; y++ {
		si := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		di := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		oi := out.PixOffset(out.Rect.Min.X, out.Rect.Min.Y+y)
		for x := 0; x < dx; x++ {
			s := src.Pix[si : si+4 : si+4]
			d := dst.Pix[di : di+4 : di+4]
			o := out.Pix[oi : oi+4 : oi+4]

			as := float64(s[3]) / 255
			ad := float64(d[3]) / 255
			fa, fb := op.factors(as, ad)

			// applying the alpha composition formula on premultiplied values
			an := fa*as + fb*ad
			if an <= 0 {
				o[0], o[1], o[2], o[3] = 0, 0, 0, 0
			} else {
				for c := 0; c < 3; c++ {
					cs := float64(s[c]) / 255 * as
					cd := float64(d[c]) / 255 * ad
					o[c] = toByte((fa*cs + fb*cd) / an)
				}
				o[3] = toByte(an)
			}

			si += 4
			di += 4
			oi += 4
		}
	}
	return bitmap
}

func toByte(v float64) uint8 {
	return uint8(utils.Clamp(math.Round(v*255), 0, 255))
}
