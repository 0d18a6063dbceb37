package window

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"screen-table-scanner/src/screenshot"
)

// ErrUnavailable means window enumeration is not supported on this platform
// or its helper could not run. Callers fall back to rectangle selection.
var ErrUnavailable = errors.New("window enumeration unavailable")

// ErrNotFound is returned when no window matches a query or a window's
// geometry can no longer be resolved.
var ErrNotFound = errors.New("window not found")

// Info identifies a top-level window.
type Info struct {
	// Handle is the platform window handle where one exists (HWND on Windows).
	Handle uintptr
	Title  string
	App    string
}

func (i Info) String() string {
	if i.App == "" {
		return i.Title
	}
	return i.App + " - " + i.Title
}

// Enumerator is the optional capability used to help pick a capture region.
type Enumerator interface {
	List(ctx context.Context) ([]Info, error)
	Bounds(ctx context.Context, w Info) (screenshot.Region, error)
}

// Unavailable is the no-op Enumerator.
type Unavailable struct{}

func (Unavailable) List(context.Context) ([]Info, error) { return nil, ErrUnavailable }

func (Unavailable) Bounds(context.Context, Info) (screenshot.Region, error) {
	return screenshot.Region{}, ErrUnavailable
}

// New returns the enumerator for the current platform, or Unavailable.
func New() Enumerator {
	return newPlatform()
}

// Find returns the first window whose "App - Title" contains query,
// case-insensitively.
func Find(windows []Info, query string) (Info, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Info{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}
	for _, w := range windows {
		if strings.Contains(strings.ToLower(w.String()), q) {
			return w, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %q", ErrNotFound, query)
}

// Resolve finds the window matching query and returns its bounding box.
func Resolve(ctx context.Context, e Enumerator, query string) (Info, screenshot.Region, error) {
	list, err := e.List(ctx)
	if err != nil {
		return Info{}, screenshot.Region{}, err
	}
	w, err := Find(list, query)
	if err != nil {
		return Info{}, screenshot.Region{}, err
	}
	region, err := e.Bounds(ctx, w)
	if err != nil {
		return w, screenshot.Region{}, err
	}
	return w, region, nil
}
