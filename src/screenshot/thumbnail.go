package screenshot

import (
	"image"

	"golang.org/x/image/draw"
)

// Thumbnail scales img down to fit within maxWidth x maxHeight, preserving
// the aspect ratio. Images already inside the box are returned unchanged.
func Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth <= 0 || maxHeight <= 0 || (w <= maxWidth && h <= maxHeight) {
		return img
	}

	ratio := float64(maxWidth) / float64(w)
	if r := float64(maxHeight) / float64(h); r < ratio {
		ratio = r
	}
	nw := max(1, int(float64(w)*ratio))
	nh := max(1, int(float64(h)*ratio))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
