package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"screen-table-scanner/src/export"
	"screen-table-scanner/src/overlay"
	"screen-table-scanner/src/pipeline"
	"screen-table-scanner/src/screenshot"
	"screen-table-scanner/src/session"
	"screen-table-scanner/src/table"
	"screen-table-scanner/src/window"
	"screen-table-scanner/src/worker"
)

const (
	maxInputSizeMB = 32
	maxInputSize   = maxInputSizeMB * 1024 * 1024

	previewWidth  = 400
	previewHeight = 300
)

// outputOptions are the delivery flags shared by capture, extract and parse.
type outputOptions struct {
	out           string
	stdout        bool
	clipboard     bool
	jsonOutput    bool
	saveProcessed string
}

func (o *outputOptions) register(cmd *cobra.Command, withProcessed bool) {
	cmd.Flags().StringVar(&o.out, "out", "", "CSV file to write")
	cmd.Flags().BoolVar(&o.stdout, "stdout", false, "Write CSV to stdout")
	cmd.Flags().BoolVar(&o.clipboard, "clipboard", false, "Copy the table to the clipboard as tab-separated text")
	cmd.Flags().BoolVar(&o.jsonOutput, "json", false, "Output a JSON report to stdout")
	if withProcessed {
		cmd.Flags().StringVar(&o.saveProcessed, "save-processed", "", "Save the preprocessed image as PNG")
	}
	cmd.MarkFlagsMutuallyExclusive("stdout", "json")
}

type extractionReport struct {
	Source    string     `json:"source"`
	Output    string     `json:"output,omitempty"`
	Rows      int        `json:"rows"`
	Columns   int        `json:"columns"`
	Header    []string   `json:"header,omitempty"`
	Data      [][]string `json:"data"`
	Timestamp string     `json:"timestamp"`
	Duration  float64    `json:"duration_seconds"`
}

func newCaptureCmd(a *app) *cobra.Command {
	var (
		region  screenshot.Region
		query   string
		pick    bool
		preview string
		o       outputOptions
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a screen region and extract its table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hasRegion := cmd.Flags().Changed("width") || cmd.Flags().Changed("height")
			var sel session.SelectorFunc
			switch {
			case pick:
				sel = session.SelectInteractive(overlay.New())
			case query != "":
				var fallback *screenshot.Region
				if hasRegion {
					fallback = &region
				}
				sel = session.SelectWindow(window.New(), query, fallback)
			case hasRegion:
				sel = session.SelectRegion(region)
			default:
				return errors.New("specify a region with --x --y --width --height, a window with --window, or --select")
			}
			source := region.String()
			switch {
			case pick:
				source = "selection"
			case query != "":
				source = "window:" + query
			}
			return a.runSession(cmd.Context(), source, a.withPreview(sel, preview), o)
		},
	}
	cmd.Flags().IntVar(&region.X, "x", 0, "Left edge in absolute screen coordinates")
	cmd.Flags().IntVar(&region.Y, "y", 0, "Top edge in absolute screen coordinates")
	cmd.Flags().IntVar(&region.Width, "width", 0, "Region width in pixels")
	cmd.Flags().IntVar(&region.Height, "height", 0, "Region height in pixels")
	cmd.Flags().StringVar(&query, "window", "", "Capture the first window whose \"App - Title\" contains this text")
	cmd.Flags().BoolVar(&pick, "select", false, "Drag a rectangle on screen to choose the region")
	cmd.Flags().StringVar(&preview, "preview", "", "Save a thumbnail of the captured region as PNG")
	o.register(cmd, true)
	return cmd
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		filePath string
		o        outputOptions
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a table from an image file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(filePath, false)
			if err != nil {
				return err
			}
			img, format, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("failed to decode image: %w", err)
			}
			a.verbosef("Decoded %s image %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())
			return a.runSession(cmd.Context(), filePath, session.SelectImage(img), o)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "Path to an image file (use '-' for stdin)")
	_ = cmd.MarkFlagRequired("file")
	o.register(cmd, true)
	return cmd
}

func newParseCmd(a *app) *cobra.Command {
	var (
		filePath string
		o        outputOptions
	)
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Rebuild a table from OCR text without capturing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(filePath, true)
			if err != nil {
				return err
			}
			start := a.now()
			t := table.Reconstruct(string(data))
			elapsed := a.now().Sub(start)
			a.logStrategies(string(data))
			a.verbosef("Reconstructed %d rows x %d columns", t.Len(), t.Columns())

			target, path := a.target(o, false)
			if !t.Empty() {
				if err := target.OnSuccess(t); err != nil {
					return err
				}
			}
			return a.finish(t, filePath, path, elapsed, o)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "Path to a text file (use '-' for stdin)")
	_ = cmd.MarkFlagRequired("file")
	o.register(cmd, false)
	return cmd
}

// readInput reads path, or stdin for "-". Empty input is an error unless
// allowEmpty is set; parse treats it as text with no rows.
func (a *app) readInput(path string, allowEmpty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		a.verbosef("Reading input from stdin")
		data, err = io.ReadAll(io.LimitReader(a.in, maxInputSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		a.verbosef("Reading input from file: %s", path)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}
	if len(data) == 0 && !allowEmpty {
		return nil, errors.New("input file is empty")
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d MB", maxInputSizeMB)
	}
	a.verbosef("Read %d bytes", len(data))
	return data, nil
}

// target assembles the delivery targets for o. Unless stdout or the
// clipboard was asked for, capture and extract save to a timestamped file
// in the output directory; parse falls back to stdout instead.
func (a *app) target(o outputOptions, defaultFile bool) (session.MultiTarget, string) {
	var targets session.MultiTarget
	path := o.out
	if path == "" && !o.stdout && !o.clipboard {
		if defaultFile {
			path = filepath.Join(a.cfg.OutputDir, export.DefaultFilename(a.now()))
		} else if !o.jsonOutput {
			o.stdout = true
		}
	}
	if path != "" {
		targets = append(targets, session.FileTarget{Path: path})
	}
	if o.stdout {
		targets = append(targets, session.StdoutTarget{Writer: a.out})
	}
	if o.clipboard {
		targets = append(targets, session.ClipboardTarget{})
	}
	return targets, path
}

func (a *app) runSession(ctx context.Context, source string, sel session.SelectorFunc, o outputOptions) error {
	engine, err := a.newEngine()
	if err != nil {
		return err
	}
	pool := worker.New(1)
	defer pool.Close()

	popts := pipeline.Options{
		Engine:        engine,
		OCRTimeout:    a.ocrTimeout(),
		KeepProcessed: o.saveProcessed != "",
	}
	if a.cfg.DebugSaveImages {
		popts.DebugDir = a.cfg.OutputDir
	}
	target, path := a.target(o, true)
	a.verbosef("Extracting from %s with %s", source, engine.Name())

	start := a.now()
	res, err := session.Execute(ctx, session.Options{
		Select:   sel,
		Run:      pool.Do,
		Pipeline: popts,
		Target:   target,
	})
	elapsed := a.now().Sub(start)
	if err != nil {
		a.verbosef("Extraction failed after %v (stage %q): %v", elapsed, pipeline.StageOf(err), err)
		return a.reportCancelled(err)
	}
	a.logStrategies(res.Text)
	tm := res.Timings
	a.verbosef("Timings: capture=%v preprocess=%v ocr=%v reconstruct=%v",
		tm.Capture, tm.Preprocess, tm.OCR, tm.Reconstruct)

	if o.saveProcessed != "" && res.Processed != nil {
		if err := savePNG(o.saveProcessed, res.Processed); err != nil {
			return err
		}
		a.verbosef("Saved processed image to %s", o.saveProcessed)
	}
	return a.finish(res.Table, source, path, elapsed, o)
}

// logStrategies prints which split strategy each non-blank line matched.
func (a *app) logStrategies(text string) {
	if !a.verbose {
		return
	}
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a.verbosef("Line %d: %s", i+1, table.StrategyFor(line, table.DefaultStrategies))
	}
}

// finish reports the outcome. An empty table still produces a report but
// maps to errEmptyExtraction.
func (a *app) finish(t table.Table, source, path string, elapsed time.Duration, o outputOptions) error {
	if t.Empty() {
		path = ""
	}
	switch {
	case o.jsonOutput:
		data := t.Rows
		if data == nil {
			data = [][]string{}
		}
		if err := a.writeJSON(extractionReport{
			Source:    source,
			Output:    path,
			Rows:      t.Len(),
			Columns:   t.Columns(),
			Header:    t.Header(),
			Data:      data,
			Timestamp: a.now().UTC().Format(time.RFC3339),
			Duration:  elapsed.Seconds(),
		}); err != nil {
			return err
		}
	case path != "" && !o.stdout:
		fmt.Fprintf(a.out, "Saved %d rows x %d columns to %s\n", t.Len(), t.Columns(), path)
	}
	if t.Empty() {
		return errEmptyExtraction
	}
	return nil
}

// withPreview captures the selected region up front so a thumbnail can be
// saved, then hands the raster to the pipeline.
func (a *app) withPreview(sel session.SelectorFunc, path string) session.SelectorFunc {
	if path == "" {
		return sel
	}
	return func(ctx context.Context) (pipeline.Input, bool, error) {
		in, cancelled, err := sel(ctx)
		if err != nil || cancelled {
			return in, cancelled, err
		}
		img := in.Image
		if img == nil {
			rgba, err := screenshot.CaptureRegion(*in.Region)
			if err != nil {
				return pipeline.Input{}, false, &pipeline.StageError{Stage: pipeline.StageCapture, Err: err}
			}
			img = rgba
		}
		if err := savePNG(path, screenshot.Thumbnail(img, previewWidth, previewHeight)); err != nil {
			return pipeline.Input{}, false, err
		}
		a.verbosef("Saved preview to %s", path)
		return pipeline.ImageInput(img), false, nil
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
