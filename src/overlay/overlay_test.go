package overlay

import (
	"context"
	"errors"
	"image"
	"image/color"
	"runtime"
	"testing"

	"screen-table-scanner/src/screenshot"
)

func TestDragRegion(t *testing.T) {
	tests := []struct {
		name       string
		origin     image.Point
		start, end image.Point
		want       screenshot.Region
		ok         bool
	}{
		{"primary display", image.Pt(0, 0), image.Pt(10, 20), image.Pt(110, 70), screenshot.Region{X: 10, Y: 20, Width: 100, Height: 50}, true},
		{"reverse drag", image.Pt(0, 0), image.Pt(110, 70), image.Pt(10, 20), screenshot.Region{X: 10, Y: 20, Width: 100, Height: 50}, true},
		{"monitor left of primary", image.Pt(-1920, 0), image.Pt(100, 100), image.Pt(300, 200), screenshot.Region{X: -1820, Y: 100, Width: 200, Height: 100}, true},
		{"too narrow", image.Pt(0, 0), image.Pt(10, 10), image.Pt(15, 200), screenshot.Region{}, false},
		{"click without drag", image.Pt(0, 0), image.Pt(50, 50), image.Pt(50, 50), screenshot.Region{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dragRegion(tt.origin, tt.start, tt.end)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("region = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToBGRA(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.SetRGBA(5, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img.SetRGBA(6, 5, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	got := toBGRA(img)
	want := []byte{3, 2, 1, 255, 30, 20, 10, 255}
	if string(got) != string(want) {
		t.Errorf("toBGRA = %v, want %v", got, want)
	}
}

func TestUnavailable(t *testing.T) {
	_, cancelled, err := Unavailable{}.Select(context.Background())
	if !errors.Is(err, ErrUnavailable) || cancelled {
		t.Errorf("Select = cancelled=%v err=%v", cancelled, err)
	}
	if runtime.GOOS != "windows" {
		if _, ok := New().(Unavailable); !ok {
			t.Errorf("New() = %T, want Unavailable", New())
		}
	}
}
