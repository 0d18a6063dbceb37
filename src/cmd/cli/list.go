package main

import (
	"context"
	"fmt"

	"screen-table-scanner/src/screenshot"
	"screen-table-scanner/src/window"
)

type windowEntry struct {
	App   string `json:"app"`
	Title string `json:"title"`
}

func (a *app) listWindows(ctx context.Context, jsonOutput bool) error {
	list, err := window.New().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	a.verbosef("Found %d windows", len(list))
	if jsonOutput {
		entries := make([]windowEntry, 0, len(list))
		for _, w := range list {
			entries = append(entries, windowEntry{App: w.App, Title: w.Title})
		}
		return a.writeJSON(entries)
	}
	for _, w := range list {
		fmt.Fprintln(a.out, w)
	}
	return nil
}

type displayEntry struct {
	Index  int `json:"index"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (a *app) listDisplays(jsonOutput bool) error {
	bounds, err := screenshot.DisplayBounds()
	if err != nil {
		return err
	}
	entries := make([]displayEntry, 0, len(bounds))
	for i, b := range bounds {
		entries = append(entries, displayEntry{Index: i, X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()})
	}
	if jsonOutput {
		return a.writeJSON(entries)
	}
	for _, d := range entries {
		r := screenshot.Region{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
		fmt.Fprintf(a.out, "#%d %s\n", d.Index, r)
	}
	return nil
}
