package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
)

func TestPlain(t *testing.T) {
	p, err := NewPlain(420, 140, 48)
	if err != nil {
		t.Fatal(err)
	}

	data, err := p.Render(t.Context(), "9 + 4 * 2")
	if err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 420 || b.Dy() != 140 {
		t.Errorf("wrong image size: %v", b)
	}

	// The center of the image must have ink on it.
	var dark bool
	for x := 150; x < 270 && !dark; x++ {
		r, g, b, _ := img.At(x, 70).RGBA()
		if r < 0x8000 && g < 0x8000 && b < 0x8000 {
			dark = true
		}
	}
	if !dark {
		t.Error("no text pixels found in the middle of the image")
	}
}

func TestCaptcha(t *testing.T) {
	c := NewCaptcha(280, 100)

	data, err := c.Render(t.Context(), "AB12CD")
	if err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 280 || b.Dy() != 100 {
		t.Errorf("wrong image size: %v", b)
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	p, err := NewPlain(100, 50, 12)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Render(ctx, "1 + 2"); !errors.Is(err, context.Canceled) {
		t.Errorf("wanted context.Canceled, got: %v", err)
	}

	if _, err := NewCaptcha(100, 50).Render(ctx, "ABCDE"); !errors.Is(err, context.Canceled) {
		t.Errorf("wanted context.Canceled, got: %v", err)
	}
}
