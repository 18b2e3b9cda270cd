package qrstyle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/esimov/qrstyle/asset"
	"github.com/esimov/qrstyle/content"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Processor renders styled codes. A Processor holds no per-render state and
// can be used by multiple goroutines at once.
type Processor struct {
	// Renderer draws the raw symbol. Defaults to ModuleRenderer.
	Renderer SymbolRenderer
	// Assets resolves logo image references.
	Assets asset.Store
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Format is the output format, PNG by default.
	Format Format
	// JPEGQuality is used for JPEG output.
	JPEGQuality int
	// BestEffortLogo renders the code without its logo when the logo
	// cannot be loaded, instead of failing the render.
	BestEffortLogo bool
}

// NewProcessor returns a processor fetching logos from store through a
// read-through cache. A nil store disables logos.
func NewProcessor(store asset.Store, logger *zap.Logger) *Processor {
	p := &Processor{
		Renderer: ModuleRenderer{},
		Logger:   logger,
		Format:   PNG,
	}
	if store != nil {
		p.Assets = asset.NewCache(store, asset.DefaultCacheSize)
	}
	return p
}

// Render encodes d, draws the styled code and returns the encoded image.
// Either the complete image or an error is returned, never both.
//
// Errors are a *content.ValidationError for invalid content, a *SymbolError
// when the payload does not fit the symbol and a *RenderError otherwise.
func (p *Processor) Render(ctx context.Context, d content.Descriptor, style Style) ([]byte, error) {
	return p.render(ctx, d, style, p.Format)
}

// RenderTo renders the code and writes it to w in a single call.
// Nothing is written when the render fails.
func (p *Processor) RenderTo(ctx context.Context, w io.Writer, d content.Descriptor, style Style) error {
	data, err := p.Render(ctx, d, style)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Process reads a job from r, renders it and writes the image to w.
// The job format, when present, overrides the processor format.
func (p *Processor) Process(ctx context.Context, r io.Reader, w io.Writer) error {
	job, err := DecodeJob(r)
	if err != nil {
		return err
	}
	format := p.Format
	if job.Format != "" {
		format = job.Format
	}
	data, err := p.render(ctx, job.Content, job.Style, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (p *Processor) render(ctx context.Context, d content.Descriptor, style Style, format Format) ([]byte, error) {
	log := p.logger()
	now := time.Now()

	payload, err := content.Encode(d)
	if err != nil {
		return nil, err
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}

	req := SymbolRequest{
		Payload:       payload,
		SizePx:        style.SizePx,
		MarginModules: style.MarginModules,
		Level:         style.ErrorCorrection,
		Dark:          style.Foreground,
		Light:         style.Background,
		DotStyle:      style.DotStyle,
		CornerStyle:   style.CornerStyle,
	}
	if style.Gradient != nil {
		// The gradient is painted over opaque ink on a transparent canvas.
		req.Dark, req.Light = Black, Transparent
	}

	var (
		raw     *image.NRGBA
		logoImg image.Image
	)
	g, gctx := errgroup.WithContext(ctx)
	if style.Logo != nil {
		g.Go(func() error {
			img, err := p.loadLogo(gctx, style.Logo, style.SizePx)
			if err != nil {
				if p.BestEffortLogo && gctx.Err() == nil {
					log.Warn("rendering without logo",
						zap.String("image", style.Logo.ImageRef),
						zap.Error(err),
					)
					return nil
				}
				return err
			}
			logoImg = img
			return nil
		})
	}
	g.Go(func() error {
		img, err := p.renderer().Render(gctx, req)
		if err != nil {
			return err
		}
		raw = img
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Debug("render failed", zap.String("content", d.Kind()), zap.Error(err))
		return nil, err
	}

	out := ApplyColor(raw, style)
	if logoImg != nil {
		if out, err = ApplyLogo(out, style.Logo, logoImg); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, out, format, p.JPEGQuality); err != nil {
		return nil, &RenderError{Kind: ErrEncodeFailed, Err: err}
	}

	log.Debug("code rendered",
		zap.String("content", d.Kind()),
		zap.Int("size", style.SizePx),
		zap.Stringer("ecc", style.ErrorCorrection),
		zap.String("format", string(format)),
		zap.Int("bytes", buf.Len()),
		zap.Duration("elapsed", time.Since(now)),
	)
	return buf.Bytes(), nil
}

// loadLogo fetches and decodes the logo image. SVG logos are rasterized at
// the size of the logo footprint.
func (p *Processor) loadLogo(ctx context.Context, logo *Logo, size int) (image.Image, error) {
	if p.Assets == nil {
		return nil, &RenderError{
			Kind: ErrLogoLoadFailed,
			Err:  fmt.Errorf("%w: no asset store configured", ErrAssetUnavailable),
		}
	}
	data, err := p.Assets.Fetch(ctx, logo.ImageRef)
	if err != nil {
		return nil, &RenderError{
			Kind: ErrLogoLoadFailed,
			Err:  fmt.Errorf("%w: %w", ErrAssetUnavailable, err),
		}
	}
	side := int(math.Ceil(float64(size) * logo.SizePct / 100))
	img, err := decodeImage(data, side)
	if err != nil {
		return nil, &RenderError{Kind: ErrLogoLoadFailed, Err: err}
	}
	return img, nil
}

func (p *Processor) renderer() SymbolRenderer {
	if p.Renderer == nil {
		return ModuleRenderer{}
	}
	return p.Renderer
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Job is a single render request read from a job file.
type Job struct {
	Content content.Descriptor
	Style   Style
	Format  Format
}

// DecodeJob reads a JSON job of the form
//
//	{"content": {"type": "link", "url": "example.com"}, "style": {...}, "format": "png"}
//
// Missing style fields take their default values.
func DecodeJob(r io.Reader) (*Job, error) {
	raw := struct {
		Content json.RawMessage `json:"content"`
		Style   Style           `json:"style"`
		Format  string          `json:"format"`
	}{Style: DefaultStyle()}

	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("could not decode the job: %w", err)
	}
	if len(raw.Content) == 0 {
		return nil, errors.New("job has no content")
	}
	d, err := content.Unmarshal(raw.Content)
	if err != nil {
		return nil, err
	}

	job := &Job{Content: d, Style: raw.Style}
	if raw.Format != "" {
		if job.Format, err = ParseFormat(raw.Format); err != nil {
			return nil, err
		}
	}
	return job, nil
}
