package qrstyle

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/esimov/qrstyle/utils"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	GIF  Format = "gif"
)

// DefaultJPEGQuality is used when no quality is given.
const DefaultJPEGQuality = 100

// ParseFormat resolves a format name or a file name/extension to a Format.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(name); ext != "" {
		name = ext
	}
	switch strings.TrimPrefix(name, ".") {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "gif":
		return GIF, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// Ext returns the file extension of the format.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	if f == "" {
		return ".png"
	}
	return "." + string(f)
}

// Encode writes img to w in the requested format.
// A non-positive quality selects DefaultJPEGQuality.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case "", PNG:
		return png.Encode(w, img)
	case JPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: utils.Min(quality, 100)})
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case GIF:
		return gif.Encode(w, paletted(img), nil)
	}
	return fmt.Errorf("unsupported image format %q", format)
}

// paletted maps img onto a palette of its 256 most frequent colors without
// dithering, so the dominant colors (background, ink) are kept exactly.
func paletted(img image.Image) *image.Paletted {
	b := img.Bounds()
	count := make(map[color.NRGBA]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			count[color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)]++
		}
	}

	colors := make([]color.NRGBA, 0, len(count))
	for c := range count {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		ci, cj := colors[i], colors[j]
		if count[ci] != count[cj] {
			return count[ci] > count[cj]
		}
		return packNRGBA(ci) < packNRGBA(cj)
	})
	if len(colors) > 256 {
		colors = colors[:256]
	}

	pal := make(color.Palette, len(colors))
	for i, c := range colors {
		pal[i] = c
	}
	dst := image.NewPaletted(b, pal)
	draw.Src.Draw(dst, b, img, b.Min)
	return dst
}

func packNRGBA(c color.NRGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// decodeImage decodes raster or SVG image data. Raster images are
// auto-oriented from their EXIF data; SVG images are rasterized to fit
// into a square of side px.
func decodeImage(data []byte, px int) (*image.NRGBA, error) {
	if utils.DetectContentType(data) == "image/svg+xml" {
		return rasterizeSVG(data, px)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("could not decode the image: %w", err)
	}
	return imgToNRGBA(img), nil
}

func rasterizeSVG(data []byte, px int) (*image.NRGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not parse the svg image: %w", err)
	}
	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	if px < 1 {
		return nil, errors.New("invalid svg target size")
	}

	// Preserve the aspect ratio inside the px square.
	scale := float64(px) / utils.Max(w, h)
	tw, th := utils.Max(int(w*scale), 1), utils.Max(int(h*scale), 1)

	icon.SetTarget(0, 0, float64(tw), float64(th))
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	scanner := rasterx.NewScannerGV(tw, th, dst, dst.Bounds())
	raster := rasterx.NewDasher(tw, th, scanner)
	icon.Draw(raster, 1.0)

	return imgToNRGBA(dst), nil
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	if srcBounds.Min.X == 0 && srcBounds.Min.Y == 0 {
		if src0, ok := img.(*image.NRGBA); ok {
			return src0
		}
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := srcBounds.Dx() * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.RGBA:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				a := src.Pix[si+3]
				switch a {
				case 0:
					dst.Pix[di+0], dst.Pix[di+1], dst.Pix[di+2] = 0, 0, 0
				case 0xff:
					copy(dst.Pix[di:di+3], src.Pix[si:si+3])
				default:
					// un-premultiply
					for c := 0; c < 3; c++ {
						dst.Pix[di+c] = uint8((uint32(src.Pix[si+c])*0xff + uint32(a)/2) / uint32(a))
					}
				}
				dst.Pix[di+3] = a
				di += 4
				si += 4
			}
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}
