package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"screen-table-scanner/src/overlay"
	"screen-table-scanner/src/pipeline"
	"screen-table-scanner/src/screenshot"
	"screen-table-scanner/src/window"
)

// ErrNoFallback is returned when window resolution fails and no rectangle
// was supplied to fall back to.
var ErrNoFallback = errors.New("window could not be resolved and no rectangle was given")

// SelectRegion returns a selector for a fixed rectangle. Regions below the
// minimum size count as an aborted selection.
func SelectRegion(r screenshot.Region) SelectorFunc {
	return func(context.Context) (pipeline.Input, bool, error) {
		if err := r.Validate(); err != nil {
			if errors.Is(err, screenshot.ErrSelectionTooSmall) {
				log.Printf("Session: %v", err)
				return pipeline.Input{}, true, nil
			}
			return pipeline.Input{}, false, err
		}
		return pipeline.RegionInput(r), false, nil
	}
}

// SelectInteractive lets the user drag a marquee with s.
func SelectInteractive(s overlay.Selector) SelectorFunc {
	return func(ctx context.Context) (pipeline.Input, bool, error) {
		region, cancelled, err := s.Select(ctx)
		if err != nil || cancelled {
			return pipeline.Input{}, cancelled, err
		}
		return SelectRegion(region)(ctx)
	}
}

// SelectImage returns a selector for an image that was captured elsewhere.
func SelectImage(img image.Image) SelectorFunc {
	return func(context.Context) (pipeline.Input, bool, error) {
		return pipeline.ImageInput(img), false, nil
	}
}

// SelectWindow resolves the bounding box of the first window matching
// query. Resolution is best effort: on any failure it falls back to
// fallback when one is given.
func SelectWindow(e window.Enumerator, query string, fallback *screenshot.Region) SelectorFunc {
	return func(ctx context.Context) (pipeline.Input, bool, error) {
		w, region, err := window.Resolve(ctx, e, query)
		if err == nil {
			log.Printf("Session: window %q resolved to %s", w, region)
			return SelectRegion(region)(ctx)
		}
		log.Printf("Session: window resolution failed: %v", err)
		if fallback != nil {
			return SelectRegion(*fallback)(ctx)
		}
		return pipeline.Input{}, false, fmt.Errorf("%w: %v", ErrNoFallback, err)
	}
}
