// Package render draws puzzle text into PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync"

	"github.com/mojocn/base64Captcha"
)

// Captcha draws text with rotated glyphs, noise characters and strike
// lines. It is used for text puzzles.
type Captcha struct {
	lock   sync.Mutex
	driver *base64Captcha.DriverString
}

// NewCaptcha returns a Captcha renderer producing width x height images.
func NewCaptcha(width, height int) *Captcha {
	driver := base64Captcha.NewDriverString(
		height,
		width,
		6,
		base64Captcha.OptionShowHollowLine|base64Captcha.OptionShowSlimeLine,
		6,
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
		&color.RGBA{R: 255, G: 255, B: 255, A: 255},
		nil,
		nil,
	)

	return &Captcha{driver: driver}
}

// Render draws text. The driver's own random content is never used; the
// puzzle answer always comes from the caller.
func (c *Captcha) Render(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.lock.Lock()
	item, err := c.driver.DrawCaptcha(text)
	c.lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render: can't draw captcha: %w", err)
	}

	var buf bytes.Buffer
	if _, err := item.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render: can't encode captcha: %w", err)
	}

	return buf.Bytes(), nil
}
