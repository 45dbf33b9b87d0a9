package visualizer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	_ "image/png"  // register PNG decoding
	"os"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // register BMP decoding
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/olivier-w/aves/internal/config"
)

var defaultBackdrop = color.RGBA{A: 0xff}

// Background draws the backdrop and owns the decoded image cache. The
// zero value is ready to use. It is safe for concurrent use so the live
// view and an export can share one.
type Background struct {
	mu     sync.Mutex
	cfg    config.Background
	source image.Image
	path   string

	// scaled is the source resized to cover the last requested size, with
	// blur applied.
	scaled     *image.RGBA
	scaledSize image.Point
	scaledBlur float64

	// fill caches color and gradient backdrops.
	fill    *image.RGBA
	fillKey string
}

// NewBackground returns a Background for cfg, decoding cfg.Image when
// the backdrop is an image. A decode failure is returned alongside a
// usable Background with an empty cache.
func NewBackground(cfg config.Background) (*Background, error) {
	b := &Background{}
	return b, b.SetConfig(cfg)
}

// Config returns the backdrop settings.
func (b *Background) Config() config.Background {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// SetConfig replaces the backdrop settings. The image is decoded again
// only when its path changed.
func (b *Background) SetConfig(cfg config.Background) error {
	b.mu.Lock()
	b.cfg = cfg
	reload := cfg.Type == config.BackgroundImage && cfg.Image != "" && cfg.Image != b.path
	b.mu.Unlock()
	if !reload {
		return nil
	}
	return b.SetImage(cfg.Image)
}

// SetImage decodes the image at path into the cache. PNG, JPEG, GIF,
// WebP and BMP are recognized. The previous image is dropped first, so a
// file that fails to load leaves no image to draw.
func (b *Background) SetImage(path string) error {
	b.mu.Lock()
	b.source = nil
	b.scaled = nil
	b.path = path
	b.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading background image: %w", err)
	}
	img, err := decodeImage(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.path == path {
		b.source = img
	}
	return nil
}

// SetImageData decodes an encoded image into the cache.
func (b *Background) SetImageData(data []byte) error {
	b.Clear()
	img, err := decodeImage(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.source = img
	return nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding background image: %w", err)
	}
	return img, nil
}

// Path returns the path of the cached image, if it came from a file.
func (b *Background) Path() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Cached reports whether an image is decoded and ready to draw.
func (b *Background) Cached() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source != nil
}

// Clear drops the cached image.
func (b *Background) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.source = nil
	b.path = ""
	b.scaled = nil
}

// Draw paints the backdrop over all of dst. A nil Background paints
// plain black.
func (b *Background) Draw(dst *image.RGBA) {
	bounds := dst.Bounds()
	if b == nil {
		fillRect(dst, bounds, image.NewUniform(defaultBackdrop), draw.Src)
		return
	}
	cfg := b.Config()
	switch cfg.Type {
	case config.BackgroundImage:
		fillRect(dst, bounds, image.Transparent, draw.Src)
		if img := b.scaledImage(bounds.Size(), cfg.Blur); img != nil {
			mask := image.NewUniform(color.Alpha{A: uint8(clamp01(cfg.Opacity)*255 + 0.5)})
			draw.DrawMask(dst, bounds, img, image.Point{}, mask, image.Point{}, draw.Over)
		}
	case config.BackgroundGradient, config.BackgroundColor:
		draw.Draw(dst, bounds, b.fillImage(bounds.Size(), cfg), image.Point{}, draw.Src)
	default:
		fillRect(dst, bounds, image.NewUniform(defaultBackdrop), draw.Src)
	}
}

func drawFill(dst *image.RGBA, cfg config.Background) {
	bounds := dst.Bounds()
	if cfg.Type == config.BackgroundGradient {
		g := newAngleGradient(parseStops(cfg.Gradient.Colors), bounds.Dx(), bounds.Dy(), cfg.Gradient.Angle)
		draw.Draw(dst, bounds, g, bounds.Min, draw.Src)
		return
	}
	fillRect(dst, bounds, image.NewUniform(parseHexOr(cfg.Color, defaultBackdrop)), draw.Src)
}

func (b *Background) fillImage(size image.Point, cfg config.Background) *image.RGBA {
	key := fmt.Sprintf("%s|%s|%v|%v|%dx%d", cfg.Type, cfg.Color, cfg.Gradient.Colors, cfg.Gradient.Angle, size.X, size.Y)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fill != nil && b.fillKey == key {
		return b.fill
	}
	img := image.NewRGBA(image.Rectangle{Max: size})
	drawFill(img, cfg)
	b.fill = img
	b.fillKey = key
	return img
}

// scaledImage returns the cached image resized to cover size, rebuilding
// it when the size or blur changed.
func (b *Background) scaledImage(size image.Point, blur float64) *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.source == nil || size.X <= 0 || size.Y <= 0 {
		return nil
	}
	if b.scaled != nil && b.scaledSize == size && b.scaledBlur == blur {
		return b.scaled
	}

	src := b.source.Bounds()
	// Cover: scale so the image fills size, then crop the centre.
	scale := max(float64(size.X)/float64(src.Dx()), float64(size.Y)/float64(src.Dy()))
	cw := min(src.Dx(), int(float64(size.X)/scale+0.5))
	ch := min(src.Dy(), int(float64(size.Y)/scale+0.5))
	crop := image.Rect(0, 0, max(cw, 1), max(ch, 1)).Add(src.Min).Add(image.Pt((src.Dx()-cw)/2, (src.Dy()-ch)/2))

	out := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.CatmullRom.Scale(out, out.Bounds(), b.source, crop, xdraw.Src, nil)
	if blur > 0 {
		out = toRGBA(imaging.Blur(out, blur))
	}
	b.scaled = out
	b.scaledSize = size
	b.scaledBlur = blur
	return out
}

func toRGBA(img *image.NRGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
