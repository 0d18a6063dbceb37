package screenshot

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/kbinani/screenshot"
)

// MinSelectionSize is the smallest accepted width and height of a region.
const MinSelectionSize = 10

var (
	// ErrCaptureFailure wraps every failure to read pixels from a display.
	ErrCaptureFailure = errors.New("capture failure")
	// ErrInvalidRegion is returned for regions with non-positive dimensions.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrSelectionTooSmall marks an aborted selection, not a capture fault.
	ErrSelectionTooSmall = errors.New("selection smaller than minimum size")
)

// Region represents a screen region to capture, in absolute virtual-screen
// coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

type Point struct {
	X int
	Y int
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Validate checks the size invariants of r without touching any display.
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidRegion, r.Width, r.Height)
	}
	if r.Width < MinSelectionSize || r.Height < MinSelectionSize {
		return fmt.Errorf("%w: %dx%d (minimum %dx%d)", ErrSelectionTooSmall, r.Width, r.Height, MinSelectionSize, MinSelectionSize)
	}
	return nil
}

// FromDrag converts a marquee drag, given in absolute screen coordinates,
// into a Region. The bool is false when the selection is below the minimum
// size and should be treated as aborted.
func FromDrag(start, end Point) (Region, bool) {
	x1, x2 := minmax(start.X, end.X)
	y1, y2 := minmax(start.Y, end.Y)
	region := Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
	if region.Width < MinSelectionSize || region.Height < MinSelectionSize {
		return Region{}, false
	}
	return region, true
}

func minmax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

// Source abstracts the display surfaces a region is read from.
type Source interface {
	NumDisplays() int
	DisplayBounds(i int) image.Rectangle
	CaptureRect(rect image.Rectangle) (*image.RGBA, error)
}

type displaySource struct{}

func (displaySource) NumDisplays() int { return screenshot.NumActiveDisplays() }

func (displaySource) DisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }

func (displaySource) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(rect)
}

// DefaultSource reads from the active displays of this machine.
var DefaultSource Source = displaySource{}

// Capturer turns regions into raster images using a Source.
type Capturer struct {
	Source Source
}

// NewCapturer returns a Capturer over the machine's displays.
func NewCapturer() *Capturer {
	return &Capturer{Source: DefaultSource}
}

// CaptureRegion captures a specific region of the screen using the default source.
func CaptureRegion(region Region) (*image.RGBA, error) {
	return NewCapturer().Capture(region)
}

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	return virtualBounds(DefaultSource)
}

// DisplayBounds lists the bounds of every active display.
func DisplayBounds() ([]image.Rectangle, error) {
	n := DefaultSource.NumDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active displays found", ErrCaptureFailure)
	}
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DefaultSource.DisplayBounds(i))
	}
	return out, nil
}

func virtualBounds(src Source) (image.Rectangle, error) {
	n := src.NumDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays found", ErrCaptureFailure)
	}
	union := src.DisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(src.DisplayBounds(i))
	}
	return union, nil
}

// covered reports whether every pixel of r lies on some display. Displays
// do not overlap, so the intersection areas add up to r's area exactly
// when r has no pixel in a gap between mismatched monitors.
func covered(src Source, r image.Rectangle) bool {
	area := 0
	for i := 0; i < src.NumDisplays(); i++ {
		in := r.Intersect(src.DisplayBounds(i))
		area += in.Dx() * in.Dy()
	}
	return area == r.Dx()*r.Dy()
}

// Capture returns an image of exactly region.Width x region.Height with its
// origin at (0,0). The display layout is re-read on every call, so a region
// chosen before a monitor was unplugged fails here rather than capturing
// garbage.
func (c *Capturer) Capture(region Region) (*image.RGBA, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	src := c.Source
	if src == nil {
		src = DefaultSource
	}

	union, err := virtualBounds(src)
	if err != nil {
		return nil, err
	}
	bounds := region.Rect()
	if !bounds.In(union) {
		return nil, fmt.Errorf("%w: region %s outside display bounds %v", ErrCaptureFailure, region, union)
	}
	if !covered(src, bounds) {
		return nil, fmt.Errorf("%w: region %s is not fully covered by a display", ErrCaptureFailure, region)
	}

	log.Printf("Capturing region %s", region)
	img, err := src.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: display returned no image", ErrCaptureFailure)
	}
	if img.Bounds().Dx() != region.Width || img.Bounds().Dy() != region.Height {
		return nil, fmt.Errorf("%w: captured %dx%d, expected %dx%d", ErrCaptureFailure,
			img.Bounds().Dx(), img.Bounds().Dy(), region.Width, region.Height)
	}
	return rebase(img), nil
}

// rebase returns img with its bounds moved to the origin.
func rebase(img *image.RGBA) *image.RGBA {
	if img.Bounds().Min == (image.Point{}) {
		return img
	}
	out := *img
	out.Rect = image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	return &out
}
