package preprocess

import (
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// Each band recomputes template margins above and below it.
	minBandRows    = 32
	bandsPerWorker = 4
)

// Denoise applies non-local-means filtering to img. Each output pixel is the
// weighted mean of the pixels in its searchWindow x searchWindow
// neighbourhood, weighted by exp(-d/h^2) where d is the mean squared
// difference between the templateWindow x templateWindow patches around the
// two pixels. Borders are reflected (reflect-101).
//
// Rows are split into bands, at most GOMAXPROCS of them in flight at once;
// the result does not depend on the number of bands.
func Denoise(img *image.Gray, h float64, templateWindow, searchWindow int) *image.Gray {
	w, ht := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, ht))
	if w == 0 || ht == 0 {
		return out
	}

	nl := newNLMeans(img, h, templateWindow/2, searchWindow/2)

	workers := runtime.GOMAXPROCS(0)
	step := max(minBandRows, (ht+bandsPerWorker*workers-1)/(bandsPerWorker*workers))

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < ht; y0 += step {
		y1 := min(y0+step, ht)
		g.Go(func() error {
			nl.band(out, y0, y1)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

type nlMeans struct {
	w, h    int
	tr, sr  int
	pad     int
	stride  int
	padded  []uint8
	weights []float64 // indexed by mean squared patch distance
}

func newNLMeans(img *image.Gray, h float64, tr, sr int) *nlMeans {
	w, ht := img.Bounds().Dx(), img.Bounds().Dy()
	pad := tr + sr
	nl := &nlMeans{w: w, h: ht, tr: tr, sr: sr, pad: pad, stride: w + 2*pad}

	nl.padded = make([]uint8, nl.stride*(ht+2*pad))
	for py := 0; py < ht+2*pad; py++ {
		sy := reflect101(py-pad, ht)
		row := img.Pix[sy*img.Stride:]
		dst := nl.padded[py*nl.stride:]
		for px := 0; px < nl.stride; px++ {
			dst[px] = row[reflect101(px-pad, w)]
		}
	}

	nl.weights = make([]float64, 255*255+1)
	h2 := h * h
	for d := range nl.weights {
		nl.weights[d] = math.Exp(-float64(d) / h2)
	}
	return nl
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// band denoises output rows [y0,y1). For every search offset it builds a
// summed-area table of squared differences over the band (plus template
// margins), so each patch distance is four lookups.
func (nl *nlMeans) band(out *image.Gray, y0, y1 int) {
	tr, sr, pad, ps := nl.tr, nl.sr, nl.pad, nl.stride
	rows := y1 - y0
	dw := nl.w + 2*tr
	dh := rows + 2*tr
	is := dw + 1
	area := int64((2*tr + 1) * (2*tr + 1))

	integral := make([]int64, is*(dh+1))
	wsum := make([]float64, rows*nl.w)
	vsum := make([]float64, rows*nl.w)

	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			for j := 0; j < dh; j++ {
				py := y0 + pad - tr + j
				a := nl.padded[py*ps+pad-tr:]
				b := nl.padded[(py+dy)*ps+pad-tr+dx:]
				prev := integral[j*is:]
				cur := integral[(j+1)*is:]
				var run int64
				for i := 0; i < dw; i++ {
					d := int64(a[i]) - int64(b[i])
					run += d * d
					cur[i+1] = prev[i+1] + run
				}
			}

			span := 2*tr + 1
			for yy := 0; yy < rows; yy++ {
				top := integral[yy*is:]
				bottom := integral[(yy+span)*is:]
				nb := nl.padded[(y0+yy+pad+dy)*ps+pad+dx:]
				ws := wsum[yy*nl.w:]
				vs := vsum[yy*nl.w:]
				for x := 0; x < nl.w; x++ {
					ssd := bottom[x+span] - top[x+span] - bottom[x] + top[x]
					wt := nl.weights[ssd/area]
					ws[x] += wt
					vs[x] += wt * float64(nb[x])
				}
			}
		}
	}

	for yy := 0; yy < rows; yy++ {
		dst := out.Pix[(y0+yy)*out.Stride:]
		for x := 0; x < nl.w; x++ {
			i := yy*nl.w + x
			dst[x] = uint8(vsum[i]/wsum[i] + 0.5)
		}
	}
}
