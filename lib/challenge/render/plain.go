package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	plainBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	plainForeground = color.RGBA{R: 30, G: 30, B: 30, A: 255}
)

// Plain draws text centered on a white background. It is used for math
// puzzles, where the expression has to stay readable.
type Plain struct {
	width, height int

	// font.Face caches glyphs and is not safe for concurrent use.
	lock sync.Mutex
	face font.Face
}

// NewPlain returns a Plain renderer using the Go Regular font at size points.
func NewPlain(width, height int, size float64) (*Plain, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: can't parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("render: can't create font face: %w", err)
	}

	return &Plain{width: width, height: height, face: face}, nil
}

func (p *Plain) Render(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(plainBackground), image.Point{}, draw.Src)

	p.lock.Lock()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(plainForeground),
		Face: p.face,
	}

	metrics := p.face.Metrics()
	textWidth := d.MeasureString(text).Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()

	d.Dot = fixed.P((p.width-textWidth)/2, (p.height-textHeight)/2+metrics.Ascent.Ceil())
	d.DrawString(text)
	p.lock.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: can't encode png: %w", err)
	}

	return buf.Bytes(), nil
}
