//go:build windows

package window

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-table-scanner/src/screenshot"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows    = user32.NewProc("EnumWindows")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
)

// EnumWindows callbacks cannot be released, so one is created for the
// process and fed through a mutex-guarded collector.
var (
	enumMu       sync.Mutex
	enumHandles  []uintptr
	enumCallback = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumHandles = append(enumHandles, hwnd)
		return 1
	})
)

type win32Enumerator struct{}

func newPlatform() Enumerator { return win32Enumerator{} }

func (win32Enumerator) List(ctx context.Context) ([]Info, error) {
	if err := procEnumWindows.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	enumMu.Lock()
	enumHandles = enumHandles[:0]
	_, _, _ = procEnumWindows.Call(enumCallback, 0)
	handles := append([]uintptr(nil), enumHandles...)
	enumMu.Unlock()

	var list []Info
	for _, h := range handles {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !win.IsWindowVisible(win.HWND(h)) {
			continue
		}
		title := windowTitle(h)
		if title == "" {
			continue
		}
		list = append(list, Info{Handle: h, Title: title, App: processName(h)})
	}
	return list, nil
}

func (win32Enumerator) Bounds(_ context.Context, w Info) (screenshot.Region, error) {
	if w.Handle == 0 {
		return screenshot.Region{}, fmt.Errorf("%w: window handle not available", ErrNotFound)
	}
	var rect win.RECT
	if !win.GetWindowRect(win.HWND(w.Handle), &rect) {
		return screenshot.Region{}, fmt.Errorf("%w: GetWindowRect failed for %q", ErrNotFound, w.Title)
	}
	return screenshot.Region{
		X:      int(rect.Left),
		Y:      int(rect.Top),
		Width:  int(rect.Right - rect.Left),
		Height: int(rect.Bottom - rect.Top),
	}, nil
}

func windowTitle(hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func processName(hwnd uintptr) string {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil || pid == 0 {
		return "Unknown"
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "Unknown"
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "Unknown"
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
