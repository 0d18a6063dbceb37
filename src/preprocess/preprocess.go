// Package preprocess prepares captured screen images for text recognition.
//
// The pipeline is fixed: grayscale, Otsu binarization, non-local-means
// denoising, then a 2x contrast stretch. It is tuned for rendered UI text
// (flat backgrounds, small crisp glyphs) rather than photographs. Every
// function returns a new image and never modifies its input.
package preprocess

import (
	"image"
	"image/color"
	"math"
)

const (
	DenoiseStrength = 10.0
	TemplateWindow  = 7
	SearchWindow    = 21
	ContrastFactor  = 2.0
)

// Process runs the full preprocessing pipeline and returns a single-channel image.
func Process(img image.Image) *image.Gray {
	gray := Grayscale(img)
	bin := Binarize(gray, OtsuThreshold(gray))
	den := Denoise(bin, DenoiseStrength, TemplateWindow, SearchWindow)
	return Contrast(den, ContrastFactor)
}

// Grayscale converts img to an origin-based *image.Gray using the ITU-R
// BT.601 luma weights with fixed-point rounding. Gray input is copied.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				dst[x] = luma(row[4*x], row[4*x+1], row[4*x+2])
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				out.Pix[y*out.Stride+x] = luma(c.R, c.G, c.B)
			}
		}
	}
	return out
}

func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*4899 + uint32(g)*9617 + uint32(b)*1868 + 8192) >> 14)
}

func histogram(img *image.Gray) (hist [256]int, total int) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for _, p := range row {
			hist[p]++
		}
	}
	return hist, w * h
}

// OtsuThreshold returns the threshold t that maximizes the between-class
// variance of the two classes {p <= t} and {p > t}, which is equivalent to
// minimizing the intra-class variance.
func OtsuThreshold(img *image.Gray) uint8 {
	hist, total := histogram(img)
	if total == 0 {
		return 0
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var (
		sumB, wB float64
		best     float64
		thresh   int
	)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = t
		}
	}
	return uint8(thresh)
}

// Binarize maps pixels above threshold to 255 and the rest to 0.
func Binarize(img *image.Gray, threshold uint8) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		dst := out.Pix[y*out.Stride:]
		for x, p := range src {
			if p > threshold {
				dst[x] = 255
			}
		}
	}
	return out
}

// Contrast scales every pixel's distance from the image mean by factor and
// clamps the result to [0,255].
func Contrast(img *image.Gray, factor float64) *image.Gray {
	hist, total := histogram(img)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if total == 0 {
		return out
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}
	mean := math.Floor(sum/float64(total) + 0.5)

	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp(mean + factor*(float64(i)-mean))
	}
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		dst := out.Pix[y*out.Stride:]
		for x, p := range src {
			dst[x] = lut[p]
		}
	}
	return out
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
