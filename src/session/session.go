package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"screen-table-scanner/src/clipboard"
	"screen-table-scanner/src/export"
	"screen-table-scanner/src/pipeline"
	"screen-table-scanner/src/screenshot"
	"screen-table-scanner/src/table"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

// SelectorFunc supplies the pipeline input: a region chosen by the user or
// an image. cancelled=true means the user aborted; err is then nil.
type SelectorFunc func(ctx context.Context) (in pipeline.Input, cancelled bool, err error)

type RunFunc func(ctx context.Context, in pipeline.Input, opts pipeline.Options) (pipeline.Result, error)

// ResultTarget receives the outcome of one session. Execute calls exactly
// one of OnSuccess, OnEmpty or OnFailure, except that an error returned by
// OnSuccess is passed on to OnFailure, so a failed delivery sees both.
type ResultTarget interface {
	OnSuccess(t table.Table) error
	OnEmpty() error
	OnFailure(err error) error
}

type Options struct {
	Select   SelectorFunc
	Run      RunFunc
	Pipeline pipeline.Options
	Target   ResultTarget
}

func Execute(ctx context.Context, opts Options) (pipeline.Result, error) {
	if opts.Select == nil {
		return pipeline.Result{}, errors.New("Select is required")
	}
	if opts.Target == nil {
		return pipeline.Result{}, errors.New("Target is required")
	}

	in, cancelled, err := opts.Select(ctx)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return pipeline.Result{}, err
	}
	if cancelled {
		_ = opts.Target.OnFailure(ErrSelectionCancelled)
		return pipeline.Result{}, ErrSelectionCancelled
	}

	run := opts.Run
	if run == nil {
		run = pipeline.Run
	}

	res, err := run(ctx, in, opts.Pipeline)
	if err != nil {
		if errors.Is(err, screenshot.ErrSelectionTooSmall) {
			log.Printf("Session: selection too small, treating as cancelled: %v", err)
			_ = opts.Target.OnFailure(ErrSelectionCancelled)
			return pipeline.Result{}, fmt.Errorf("%w: %v", ErrSelectionCancelled, err)
		}
		_ = opts.Target.OnFailure(err)
		return pipeline.Result{}, err
	}

	if res.Empty() {
		log.Printf("Session: no rows extracted")
		if err := opts.Target.OnEmpty(); err != nil {
			return res, err
		}
		return res, nil
	}

	if err := opts.Target.OnSuccess(res.Table); err != nil {
		_ = opts.Target.OnFailure(err)
		return res, err
	}
	return res, nil
}

// FileTarget exports the table as CSV to Path.
type FileTarget struct {
	Path string
}

func (t FileTarget) OnSuccess(tbl table.Table) error {
	return pipeline.Export(tbl, t.Path)
}

func (FileTarget) OnEmpty() error { return nil }

func (FileTarget) OnFailure(error) error { return nil }

// StdoutTarget streams the table as CSV to Writer (os.Stdout by default).
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(tbl table.Table) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	return export.Encode(w, tbl)
}

func (StdoutTarget) OnEmpty() error { return nil }

func (StdoutTarget) OnFailure(error) error { return nil }

// ClipboardTarget copies the table as tab-separated text.
type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(tbl table.Table) error {
	if err := clipboard.WriteTable(tbl); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return nil
}

func (ClipboardTarget) OnEmpty() error { return nil }

func (ClipboardTarget) OnFailure(error) error { return nil }

// MultiTarget fans out to several targets, stopping at the first delivery
// error.
type MultiTarget []ResultTarget

func (m MultiTarget) OnSuccess(tbl table.Table) error {
	for _, t := range m {
		if err := t.OnSuccess(tbl); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiTarget) OnEmpty() error {
	for _, t := range m {
		if err := t.OnEmpty(); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiTarget) OnFailure(err error) error {
	var first error
	for _, t := range m {
		if e := t.OnFailure(err); e != nil && first == nil {
			first = e
		}
	}
	return first
}
