package qrstyle

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"testing"

	"github.com/esimov/qrstyle/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_ImgToNRGBA(t *testing.T) {
	rect := image.Rect(-1, -1, 15, 15)
	colors := palette.Plan9
	testCases := []struct {
		name string
		img  image.Image
	}{
		{
			name: "NRGBA",
			img:  makeNRGBAImage(rect, colors),
		},
		{
			name: "RGBA",
			img:  makeRGBAImage(rect, colors),
		},
		{
			name: "YCbCr-444",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio444),
		},
		{
			name: "YCbCr-420",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio420),
		},
		{
			name: "Gray",
			img:  makeGrayImage(rect),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.img.Bounds()
			got := imgToNRGBA(tc.img)
			assert.Equal(t, image.Rect(0, 0, r.Dx(), r.Dy()), got.Bounds())

			for y := r.Min.Y; y < r.Max.Y; y++ {
				row := got.Pix[got.PixOffset(0, y-r.Min.Y) : got.PixOffset(0, y-r.Min.Y)+r.Dx()*4]
				want := readRow(tc.img, y)
				if !compareBytes(row, want, 1) {
					t.Errorf("horizontal line (y=%d): got %v want %v", y, row, want)
				}
			}
		})
	}
}

func TestImage_ImgToNRGBAKeepsZeroOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Same(t, img, imgToNRGBA(img))
}

func TestImage_ParseFormat(t *testing.T) {
	testCases := []struct {
		in   string
		want Format
	}{
		{"", PNG},
		{"png", PNG},
		{"JPG", JPEG},
		{"jpeg", JPEG},
		{"out/code.tif", TIFF},
		{"code.bmp", BMP},
		{".gif", GIF},
	}
	for _, tc := range testCases {
		got, err := ParseFormat(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseFormat("code.webp")
	assert.Error(t, err)

	assert.Equal(t, ".jpg", JPEG.Ext())
	assert.Equal(t, ".png", Format("").Ext())
	assert.Equal(t, ".tiff", TIFF.Ext())
}

func TestImage_Encode(t *testing.T) {
	img := makeNRGBAImage(image.Rect(0, 0, 12, 8), palette.Plan9)

	for _, format := range []Format{PNG, JPEG, BMP, TIFF, GIF} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, img, format, 0), format)

		cfg, name, err := image.DecodeConfig(&buf)
		require.NoError(t, err, format)
		assert.Equal(t, 12, cfg.Width, format)
		assert.Equal(t, 8, cfg.Height, format)
		assert.Equal(t, string(format), name)
	}

	assert.Error(t, Encode(&bytes.Buffer{}, img, Format("svg"), 0))
}

func TestImage_EncodeGIFKeepsDominantColors(t *testing.T) {
	assert := assert.New(t)

	// 800 distinct colors in the top half, a plain background below.
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	bg := color.NRGBA{R: 0xfa, G: 0xf0, B: 0xe6, A: 0xff}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if y < 20 {
				i := y*40 + x
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(i), G: uint8(i >> 8 * 60), B: 0x30, A: 0xff})
				continue
			}
			img.SetNRGBA(x, y, bg)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, GIF, 0))
	out, err := gif.Decode(&buf)
	require.NoError(t, err)

	for y := 20; y < 40; y++ {
		for x := 0; x < 40; x++ {
			r, g, b, a := out.At(x, y).RGBA()
			assert.Equal([4]uint32{0xfa, 0xf0, 0xe6, 0xff}, [4]uint32{r >> 8, g >> 8, b >> 8, a >> 8})
		}
	}

	// Images with few colors survive unchanged.
	small := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			small.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 32), G: uint8(y * 32), B: 0x80, A: 0xff})
		}
	}
	buf.Reset()
	require.NoError(t, Encode(&buf, small, GIF, 0))
	out, err = gif.Decode(&buf)
	require.NoError(t, err)
	for y := 0; y < 8; y++ {
		assert.Equal(readRow(small, y), readRow(out, y))
	}
}

func TestImage_DecodeImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 6, 3))
	draw.Draw(src, src.Bounds(), image.NewUniform(color.NRGBA{R: 0xff, A: 0xff}), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := decodeImage(buf.Bytes(), 100)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, img.NRGBAAt(2, 1))

	_, err = decodeImage([]byte("not an image"), 100)
	assert.Error(t, err)
}

func TestImage_DecodeSVG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10">` +
		`<rect x="0" y="0" width="20" height="10" fill="#0000ff"/></svg>`

	img, err := decodeImage([]byte(svg), 40)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	c := img.NRGBAAt(20, 10)
	assert.Equal(t, uint8(0xff), c.B)
	assert.Equal(t, uint8(0xff), c.A)
}

func makeYCbCrImage(rect image.Rectangle, colors []color.Color, sr image.YCbCrSubsampleRatio) *image.YCbCr {
	img := image.NewYCbCr(rect, sr)
	j := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			iy := img.YOffset(x, y)
			ic := img.COffset(x, y)
			c := color.NRGBAModel.Convert(colors[j]).(color.NRGBA)
			img.Y[iy], img.Cb[ic], img.Cr[ic] = color.RGBToYCbCr(c.R, c.G, c.B)
			j++
		}
	}
	return img
}

func makeNRGBAImage(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func makeRGBAImage(rect image.Rectangle, colors []color.Color) *image.RGBA {
	img := image.NewRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func makeGrayImage(rect image.Rectangle) *image.Gray {
	img := image.NewGray(rect)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func fillDrawImage(img draw.Image, colors []color.Color) {
	colorsNRGBA := make([]color.NRGBA, len(colors))
	for i, c := range colors {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		nrgba.A = uint8(i % 256)
		colorsNRGBA[i] = nrgba
	}
	rect := img.Bounds()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, colorsNRGBA[i])
			i++
		}
	}
}

func readRow(img image.Image, y int) []uint8 {
	row := make([]byte, img.Bounds().Dx()*4)
	i := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
		i += 4
	}
	return row
}

func compareBytes(a, b []uint8, delta int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if utils.Abs(int(a[i])-int(b[i])) > delta {
			return false
		}
	}
	return true
}
