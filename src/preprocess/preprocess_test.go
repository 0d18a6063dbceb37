package preprocess

import (
	"image"
	"image/color"
	"testing"
)

// textLike draws dark "glyph" bars on a light, slightly uneven background,
// roughly what a captured table cell looks like.
func textLike(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bg := uint8(225 + (x+y)%20)
			img.SetRGBA(x, y, color.RGBA{R: bg, G: bg, B: bg, A: 255})
		}
	}
	for y := h / 3; y < 2*h/3; y++ {
		for x := 4; x < w-4; x += 6 {
			img.SetRGBA(x, y, color.RGBA{R: 20, G: 30, B: 40, A: 255})
			img.SetRGBA(x+1, y, color.RGBA{R: 20, G: 30, B: 40, A: 255})
		}
	}
	return img
}

func TestGrayscaleWeights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	img.SetRGBA(2, 0, color.RGBA{B: 255, A: 255})
	img.SetRGBA(3, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	gray := Grayscale(img)
	want := []uint8{76, 150, 29, 255}
	for x, w := range want {
		if got := gray.GrayAt(x, 0).Y; got != w {
			t.Errorf("pixel %d = %d, want %d", x, got, w)
		}
	}
}

func TestGrayscaleRebasesSubImages(t *testing.T) {
	img := textLike(40, 30)
	sub := img.SubImage(image.Rect(10, 5, 30, 25))
	gray := Grayscale(sub)
	if gray.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Fatalf("bounds = %v, want origin-based 20x20", gray.Bounds())
	}
	want := luma(img.RGBAAt(10, 5).R, img.RGBAAt(10, 5).G, img.RGBAAt(10, 5).B)
	if got := gray.GrayAt(0, 0).Y; got != want {
		t.Errorf("pixel (0,0) = %d, want %d", got, want)
	}
}

func TestOtsuSeparatesBimodalHistogram(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 100; x++ {
			v := uint8(40 + x%5)
			if x >= 70 {
				v = uint8(200 + x%5)
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	th := OtsuThreshold(img)
	if th < 44 || th >= 200 {
		t.Fatalf("threshold %d does not separate the two modes", th)
	}

	bin := Binarize(img, th)
	if bin.GrayAt(10, 0).Y != 0 || bin.GrayAt(80, 0).Y != 255 {
		t.Errorf("unexpected binarization: dark=%d light=%d", bin.GrayAt(10, 0).Y, bin.GrayAt(80, 0).Y)
	}
}

func TestOtsuUniformImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	if th := OtsuThreshold(img); th != 0 {
		t.Errorf("uniform image threshold = %d, want 0", th)
	}
}

func TestContrastKeepsBinaryValues(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		if i%3 == 0 {
			img.Pix[i] = 255
		}
	}
	out := Contrast(img, ContrastFactor)
	for i, p := range out.Pix {
		if p != img.Pix[i] {
			t.Fatalf("pixel %d changed from %d to %d", i, img.Pix[i], p)
		}
	}
}

func TestContrastStretchesAroundMean(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.Pix[0], img.Pix[1] = 100, 140 // mean 120
	out := Contrast(img, 2.0)
	if out.Pix[0] != 80 || out.Pix[1] != 160 {
		t.Errorf("contrast = %v, want [80 160]", out.Pix[:2])
	}
}

func TestDenoiseUniformImageUnchanged(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 15, 12))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	out := Denoise(img, DenoiseStrength, TemplateWindow, SearchWindow)
	for i, p := range out.Pix {
		if p != 255 {
			t.Fatalf("pixel %d = %d, want 255", i, p)
		}
	}
}

func TestDenoisePreservesStrongEdges(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 15; x < 30; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	out := Denoise(img, DenoiseStrength, TemplateWindow, SearchWindow)
	if got := out.GrayAt(5, 15).Y; got > 10 {
		t.Errorf("dark side drifted to %d", got)
	}
	if got := out.GrayAt(25, 15).Y; got < 245 {
		t.Errorf("light side drifted to %d", got)
	}
}

func TestDenoiseBandsMatchSinglePass(t *testing.T) {
	// 100 rows is several bands at minBandRows.
	src := Grayscale(textLike(24, 100))
	got := Denoise(src, DenoiseStrength, TemplateWindow, SearchWindow)

	nl := newNLMeans(src, DenoiseStrength, TemplateWindow/2, SearchWindow/2)
	want := image.NewGray(src.Bounds())
	nl.band(want, 0, 100)

	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("pixel %d = %d, single pass gives %d", i, got.Pix[i], want.Pix[i])
		}
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{-1, 5, 1},
		{-2, 5, 2},
		{5, 5, 3},
		{6, 5, 2},
		{0, 1, 0},
		{-7, 3, 1},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestProcessIsSingleChannelAndShapePreserving(t *testing.T) {
	img := textLike(48, 24)

	once := Process(img)
	if once.Bounds() != image.Rect(0, 0, 48, 24) {
		t.Fatalf("Process bounds = %v, want 48x24", once.Bounds())
	}
	if once.ColorModel() != color.GrayModel {
		t.Fatalf("expected gray color model")
	}

	twice := Process(once)
	if twice.Bounds() != once.Bounds() {
		t.Errorf("second pass changed shape: %v -> %v", once.Bounds(), twice.Bounds())
	}
	if twice.ColorModel() != color.GrayModel {
		t.Errorf("second pass is not single-channel")
	}
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	img := textLike(20, 20)
	before := append([]uint8(nil), img.Pix...)
	_ = Process(img)
	for i := range before {
		if img.Pix[i] != before[i] {
			t.Fatalf("input pixel byte %d modified", i)
		}
	}
}
