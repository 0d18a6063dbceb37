// Package overlay provides interactive marquee selection of a screen
// region. The user drags a rectangle over a frozen copy of the desktop;
// Escape or a drag below the minimum size cancels.
package overlay

import (
	"context"
	"errors"
	"image"

	"screen-table-scanner/src/screenshot"
)

// ErrUnavailable is returned on platforms without an overlay implementation.
var ErrUnavailable = errors.New("interactive region selection not available on this platform")

// Hint is drawn on the overlay while it is open.
const Hint = "Drag to select a table. ESC cancels."

// Selector is a blocking region picker. If cancelled is true the region is
// undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (region screenshot.Region, cancelled bool, err error)
}

// New returns the platform selector, or Unavailable.
func New() Selector {
	return newPlatform()
}

type Unavailable struct{}

func (Unavailable) Select(context.Context) (screenshot.Region, bool, error) {
	return screenshot.Region{}, false, ErrUnavailable
}

// dragRegion converts a drag in overlay client coordinates into an absolute
// region. origin is the virtual-screen position of the overlay's top-left.
func dragRegion(origin, start, end image.Point) (screenshot.Region, bool) {
	s := start.Add(origin)
	e := end.Add(origin)
	return screenshot.FromDrag(screenshot.Point{X: s.X, Y: s.Y}, screenshot.Point{X: e.X, Y: e.Y})
}

// toBGRA converts img into top-down 32-bit BGRA rows as GDI expects them.
func toBGRA(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out[y*w*4:]
		for x := 0; x < w; x++ {
			i := x * 4
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = src[i+3]
		}
	}
	return out
}
