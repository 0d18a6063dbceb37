//go:build darwin

package window

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"screen-table-scanner/src/screenshot"
)

const (
	listTimeout   = 10 * time.Second
	boundsTimeout = 5 * time.Second
)

type appleScriptEnumerator struct{}

func newPlatform() Enumerator { return appleScriptEnumerator{} }

func runAppleScript(ctx context.Context, timeout time.Duration, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("%w: osascript: %v", ErrUnavailable, err)
	}
	return string(out), nil
}

func (appleScriptEnumerator) List(ctx context.Context) ([]Info, error) {
	out, err := runAppleScript(ctx, listTimeout, listWindowsScript)
	if err != nil {
		log.Printf("Window list failed: %v", err)
		return nil, err
	}
	return parseWindowList(out), nil
}

func (appleScriptEnumerator) Bounds(ctx context.Context, w Info) (screenshot.Region, error) {
	out, err := runAppleScript(ctx, boundsTimeout, boundsScript(w.App, w.Title))
	if err != nil {
		return screenshot.Region{}, err
	}
	return parseBounds(out)
}
