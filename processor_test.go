package qrstyle

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/esimov/qrstyle/asset"
	"github.com/esimov/qrstyle/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// logoStore serves a red PNG for "logo.png" and counts the fetches.
type logoStore struct {
	fetches atomic.Int32
	data    []byte
}

func newLogoStore(t *testing.T) *logoStore {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, uniformImage(16, 16, red)))
	return &logoStore{data: buf.Bytes()}
}

func (s *logoStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	s.fetches.Add(1)
	if ref != "logo.png" {
		return nil, asset.ErrNotFound
	}
	return s.data, nil
}

func decodePNG(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return imgToNRGBA(img)
}

func TestProcessor_Render(t *testing.T) {
	p := NewProcessor(newLogoStore(t), zaptest.NewLogger(t))

	data, err := p.Render(context.Background(), content.Link{URL: "https://example.com"}, DefaultStyle())
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())
	assert.Equal(t, White, Color(img.NRGBAAt(0, 0)))
}

func TestProcessor_RenderWithLogo(t *testing.T) {
	assert := assert.New(t)
	p := NewProcessor(newLogoStore(t), zaptest.NewLogger(t))

	s := DefaultStyle()
	s.Gradient = &Gradient{Kind: GradientRadial, Start: Color{G: 0x80, A: 0xff}, End: Black}
	logo := DefaultLogo("logo.png")
	logo.Shape = ShapeCircle
	s.Logo = &logo

	data, err := p.Render(context.Background(), content.PlainText{Text: "hello"}, s)
	require.NoError(t, err)

	img := decodePNG(t, data)
	center := img.NRGBAAt(150, 150)
	assert.Greater(center.R, uint8(0xf0))
	assert.Less(center.G, uint8(0x10))
	assert.Equal(White, Color(img.NRGBAAt(2, 2)))
}

func TestProcessor_LogoFailure(t *testing.T) {
	s := DefaultStyle()
	logo := DefaultLogo("missing.png")
	s.Logo = &logo
	d := content.Link{URL: "https://example.com"}

	p := NewProcessor(newLogoStore(t), zaptest.NewLogger(t))
	data, err := p.Render(context.Background(), d, s)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrLogoLoadFailed)
	assert.ErrorIs(t, err, ErrAssetUnavailable)
	assert.ErrorIs(t, err, asset.ErrNotFound)

	var buf bytes.Buffer
	assert.Error(t, p.RenderTo(context.Background(), &buf, d, s))
	assert.Zero(t, buf.Len())

	// Without a store the logo cannot be loaded either.
	_, err = (&Processor{}).Render(context.Background(), d, s)
	assert.ErrorIs(t, err, ErrAssetUnavailable)

	p.BestEffortLogo = true
	data, err = p.Render(context.Background(), d, s)
	require.NoError(t, err)
	assert.NotEqual(t, red, decodePNG(t, data).NRGBAAt(150, 150))
}

func TestProcessor_InvalidLogoImage(t *testing.T) {
	store := asset.StoreFunc(func(ctx context.Context, ref string) ([]byte, error) {
		return []byte("definitely not an image"), nil
	})
	s := DefaultStyle()
	logo := DefaultLogo("logo.png")
	s.Logo = &logo

	_, err := NewProcessor(store, nil).Render(context.Background(), content.PlainText{Text: "x"}, s)
	assert.ErrorIs(t, err, ErrLogoLoadFailed)
	assert.NotErrorIs(t, err, ErrAssetUnavailable)
}

func TestProcessor_Errors(t *testing.T) {
	p := NewProcessor(newLogoStore(t), nil)
	ctx := context.Background()

	s := DefaultStyle()
	s.SizePx = 50
	_, err := p.Render(ctx, content.PlainText{Text: "x"}, s)
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = p.Render(ctx, content.Link{URL: ""}, DefaultStyle())
	var verr *content.ValidationError
	assert.True(t, errors.As(err, &verr))

	s = DefaultStyle()
	s.ErrorCorrection = ECLevelH
	_, err = p.Render(ctx, content.PlainText{Text: strings.Repeat("a long text ", 300)}, s)
	var serr *SymbolError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, ECLevelH, serr.Level)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Render(ctx, content.PlainText{Text: "x"}, DefaultStyle())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_SharedLogoIsFetchedOnce(t *testing.T) {
	store := newLogoStore(t)
	p := NewProcessor(store, nil)

	s := DefaultStyle()
	logo := DefaultLogo("logo.png")
	s.Logo = &logo

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Render(context.Background(), content.PlainText{Text: "concurrent"}, s)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), store.fetches.Load())
}

func TestProcessor_DecodeJob(t *testing.T) {
	assert := assert.New(t)

	job, err := DecodeJob(strings.NewReader(`{
		"content": {"type": "wifi", "ssid": "home", "password": "secret", "security": "WPA"},
		"style": {"size": 200, "dotStyle": "dots"},
		"format": "jpg"
	}`))
	require.NoError(t, err)
	assert.Equal(content.WiFi{SSID: "home", Password: "secret", Security: content.WPA}, job.Content)
	assert.Equal(200, job.Style.SizePx)
	assert.Equal(DotDots, job.Style.DotStyle)
	assert.Equal(DefaultMarginModules, job.Style.MarginModules)
	assert.Equal(Black, job.Style.Foreground)
	assert.Equal(JPEG, job.Format)

	job, err = DecodeJob(strings.NewReader(`{"content": {"type": "text", "text": "hi"}}`))
	require.NoError(t, err)
	assert.Equal(DefaultStyle(), job.Style)
	assert.Equal(Format(""), job.Format)

	_, err = DecodeJob(strings.NewReader(`{"style": {}}`))
	assert.Error(err)
	_, err = DecodeJob(strings.NewReader(`{"content": {"type": "fax"}}`))
	assert.Error(err)
	_, err = DecodeJob(strings.NewReader(`{"content": {"type": "text", "text": "hi"}, "format": "svg"}`))
	assert.Error(err)
}

func TestProcessor_Process(t *testing.T) {
	p := NewProcessor(nil, nil)

	var out bytes.Buffer
	err := p.Process(context.Background(), strings.NewReader(`{
		"content": {"type": "link", "url": "https://example.com"},
		"format": "jpeg"
	}`), &out)
	require.NoError(t, err)

	cfg, name, err := image.DecodeConfig(&out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", name)
	assert.Equal(t, 300, cfg.Width)
}
