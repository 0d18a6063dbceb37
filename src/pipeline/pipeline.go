// Package pipeline chains capture, preprocessing, OCR and table
// reconstruction for a single user action. Every value it produces is
// scoped to one invocation and returned to the caller; nothing is kept
// between runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"screen-table-scanner/src/export"
	"screen-table-scanner/src/ocr"
	"screen-table-scanner/src/preprocess"
	"screen-table-scanner/src/screenshot"
	"screen-table-scanner/src/table"
)

type Stage string

const (
	StageCapture    Stage = "capture"
	StagePreprocess Stage = "preprocess"
	StageOCR        Stage = "ocr"
	StageExport     Stage = "export"
)

// StageError tags a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage recorded in err, or "" if there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

var ErrNoInput = errors.New("no region or image supplied")

// Capturer reads a region of the screen.
type Capturer interface {
	Capture(region screenshot.Region) (*image.RGBA, error)
}

// Input is either a region to capture or an already captured image.
type Input struct {
	Region *screenshot.Region
	Image  image.Image
}

// RegionInput is shorthand for capturing r.
func RegionInput(r screenshot.Region) Input { return Input{Region: &r} }

// ImageInput is shorthand for processing an existing raster.
func ImageInput(img image.Image) Input { return Input{Image: img} }

type Options struct {
	Capturer   Capturer
	Engine     ocr.Engine
	OCRTimeout time.Duration
	// Strategies overrides table.DefaultStrategies.
	Strategies []table.Strategy
	// KeepProcessed returns the preprocessed image in Result.Processed.
	KeepProcessed bool
	// DebugDir, when set, receives the captured and processed images as PNG.
	DebugDir string
}

type Timings struct {
	Capture     time.Duration
	Preprocess  time.Duration
	OCR         time.Duration
	Reconstruct time.Duration
}

type Result struct {
	Table table.Table
	// Text is the raw OCR output the table was built from.
	Text string
	// Size is the captured raster's dimensions.
	Size      image.Point
	Processed *image.Gray
	Timings   Timings
}

// Empty reports a run that completed but reconstructed no rows. It is a
// valid outcome, distinct from a failure: the user should try another
// region.
func (r Result) Empty() bool { return r.Table.Empty() }

// Run executes the chain synchronously. The only deadline is the OCR
// timeout; there is no mid-pipeline abort.
func Run(ctx context.Context, in Input, opts Options) (Result, error) {
	var res Result

	start := time.Now()
	img, err := acquire(in, opts)
	if err != nil {
		return Result{}, &StageError{Stage: StageCapture, Err: err}
	}
	res.Timings.Capture = time.Since(start)
	res.Size = img.Bounds().Size()
	log.Printf("Pipeline: acquired %dx%d image", res.Size.X, res.Size.Y)
	if res.Size.X == 0 || res.Size.Y == 0 {
		return Result{}, &StageError{Stage: StagePreprocess, Err: errors.New("empty image")}
	}
	saveDebug(opts.DebugDir, "captured", img)

	start = time.Now()
	processed := preprocess.Process(img)
	res.Timings.Preprocess = time.Since(start)
	saveDebug(opts.DebugDir, "processed", processed)

	engine := opts.Engine
	if engine == nil {
		engine = &ocr.Tesseract{}
	}
	start = time.Now()
	text, err := ocr.Recognize(ctx, engine, processed, opts.OCRTimeout)
	res.Timings.OCR = time.Since(start)
	if err != nil {
		return Result{}, &StageError{Stage: StageOCR, Err: err}
	}
	res.Text = text

	strategies := opts.Strategies
	if strategies == nil {
		strategies = table.DefaultStrategies
	}
	start = time.Now()
	res.Table = table.ReconstructWith(text, strategies)
	res.Timings.Reconstruct = time.Since(start)
	log.Printf("Pipeline: reconstructed %d rows x %d columns", res.Table.Len(), res.Table.Columns())

	if opts.KeepProcessed {
		res.Processed = processed
	}
	return res, nil
}

func acquire(in Input, opts Options) (image.Image, error) {
	if in.Image != nil {
		return in.Image, nil
	}
	if in.Region == nil {
		return nil, ErrNoInput
	}
	c := opts.Capturer
	if c == nil {
		c = screenshot.NewCapturer()
	}
	return c.Capture(*in.Region)
}

// Export writes t to path, tagging failures with the export stage.
func Export(t table.Table, path string) error {
	if err := export.WriteCSV(t, path); err != nil {
		return &StageError{Stage: StageExport, Err: err}
	}
	return nil
}

func saveDebug(dir, name string, img image.Image) {
	if dir == "" {
		return
	}
	b := img.Bounds()
	path := filepath.Join(dir, fmt.Sprintf("debug_%s_%dx%d.png", name, b.Dx(), b.Dy()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		log.Printf("Warning: Could not save debug image: %v", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Printf("Warning: Could not encode debug image: %v", err)
		return
	}
	log.Printf("DEBUG: Saved %s image to %s", name, path)
}
