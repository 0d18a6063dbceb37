//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract links libtesseract through cgo. Build with -tags gosseract.
type Gosseract struct {
	language string
}

// NewGosseract returns a cgo-backed engine using lang.
func NewGosseract(lang string) (Engine, error) {
	return &Gosseract{language: lang}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Version(ctx context.Context) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()
	return c.Version(), nil
}

// Recognize runs recognition in a sub-goroutine so ctx expiry is honoured
// even though the library call itself cannot be interrupted; the client is
// released once the call returns.
func (g *Gosseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image as PNG: %w", err)
	}

	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := g.recognize(buf.Bytes())
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()

	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		log.Printf("gosseract: deadline reached, abandoning in-flight recognition")
		return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

func (g *Gosseract) recognize(data []byte) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(g.language); err != nil {
		return "", fmt.Errorf("%w: set language: %v", ErrUnavailable, err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}
