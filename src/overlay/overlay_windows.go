//go:build windows

package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-table-scanner/src/screenshot"
)

const (
	keyPollTimerID    = 1
	keyPollIntervalMs = 25
	penWidth          = 3
	penColor          = 0x0000FF // COLORREF red
	hintColor         = 0x00FFFF
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procAllowSetForegroundWindow = user32.NewProc("AllowSetForegroundWindow")
	procGetAsyncKeyState         = user32.NewProc("GetAsyncKeyState")

	gdi32         = windows.NewLazySystemDLL("gdi32.dll")
	procCreatePen = gdi32.NewProc("CreatePen")
	procRectangle = gdi32.NewProc("Rectangle")
)

// The window procedure callback is process-wide, so a single marquee is
// active at a time and selectMu serializes Select calls.
var (
	className    = syscall.StringToUTF16Ptr("ScreenTableMarquee")
	registerOnce sync.Once
	registerErr  error
	wndProcPtr   = windows.NewCallback(wndProc)

	selectMu sync.Mutex
	active   *marquee
)

type marquee struct {
	origin image.Point
	size   image.Point
	bgra   []byte

	dragging   bool
	start, end image.Point
	escWasDown bool

	done   bool
	ok     bool
	region screenshot.Region
}

type win32Selector struct{}

func newPlatform() Selector { return win32Selector{} }

func (win32Selector) Select(ctx context.Context) (screenshot.Region, bool, error) {
	selectMu.Lock()
	defer selectMu.Unlock()

	// Window messages are delivered to the creating thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	bounds, err := screenshot.VirtualBounds()
	if err != nil {
		return screenshot.Region{}, false, err
	}
	bg, err := screenshot.CaptureRegion(screenshot.Region{
		X: bounds.Min.X, Y: bounds.Min.Y, Width: bounds.Dx(), Height: bounds.Dy(),
	})
	if err != nil {
		return screenshot.Region{}, false, fmt.Errorf("failed to capture overlay background: %w", err)
	}
	if err := registerClass(); err != nil {
		return screenshot.Region{}, false, err
	}

	m := &marquee{origin: bounds.Min, size: bounds.Size(), bgra: toBGRA(bg)}
	active = m
	defer func() { active = nil }()

	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST,
		className,
		syscall.StringToUTF16Ptr(Hint),
		win.WS_POPUP|win.WS_VISIBLE,
		int32(bounds.Min.X), int32(bounds.Min.Y), int32(bounds.Dx()), int32(bounds.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return screenshot.Region{}, false, errors.New("failed to create overlay window")
	}
	defer win.DestroyWindow(hwnd)
	log.Printf("Overlay: opened over %v", bounds)

	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(hwnd)
	win.BringWindowToTop(hwnd)
	win.SetFocus(hwnd)
	win.UpdateWindow(hwnd)
	if win.SetTimer(hwnd, keyPollTimerID, keyPollIntervalMs, 0) == 0 {
		log.Printf("Overlay: failed to start key poll timer")
	}
	defer win.KillTimer(hwnd, keyPollTimerID)

	stop := context.AfterFunc(ctx, func() {
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	})
	defer stop()

	// No PostQuitMessage: a stray WM_QUIT would end the next selection
	// on this thread immediately.
	var msg win.MSG
	for !m.done {
		if r := win.GetMessage(&msg, 0, 0, 0); r == 0 || r == -1 {
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	if err := ctx.Err(); err != nil {
		return screenshot.Region{}, false, err
	}
	if !m.ok {
		log.Printf("Overlay: selection cancelled")
		return screenshot.Region{}, true, nil
	}
	log.Printf("Overlay: selected %s", m.region)
	return m.region, false, nil
}

func registerClass() error {
	registerOnce.Do(func() {
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   wndProcPtr,
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)),
			LpszClassName: className,
		}
		if win.RegisterClassEx(&wc) == 0 {
			registerErr = errors.New("failed to register overlay window class")
		}
	})
	return registerErr
}

func clientPoint(lParam uintptr) image.Point {
	return image.Pt(int(int16(win.LOWORD(uint32(lParam)))), int(int16(win.HIWORD(uint32(lParam)))))
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	m := active
	if m == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		m.dragging = true
		m.start = clientPoint(lParam)
		m.end = m.start
		win.InvalidateRect(hwnd, nil, false)
		return 0

	case win.WM_MOUSEMOVE:
		if m.dragging {
			m.end = clientPoint(lParam)
			win.InvalidateRect(hwnd, nil, false)
		}
		return 0

	case win.WM_LBUTTONUP:
		if !m.dragging {
			return 0
		}
		win.ReleaseCapture()
		m.dragging = false
		m.end = clientPoint(lParam)
		// A drag below the minimum size ends the selection as cancelled.
		m.region, m.ok = dragRegion(m.origin, m.start, m.end)
		m.done = true
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		m.paint(hdc)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_ERASEBKGND:
		return 1

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)

	case win.WM_TIMER:
		if wParam == keyPollTimerID {
			m.pollEscape()
		}
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			m.cancel()
		}
		return 0

	case win.WM_CLOSE:
		m.cancel()
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func (m *marquee) cancel() {
	m.dragging = false
	m.ok = false
	m.done = true
}

// pollEscape catches Escape when the overlay did not get keyboard focus.
func (m *marquee) pollEscape() {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(win.VK_ESCAPE))
	down := uint16(state)&0x8000 != 0
	if down && !m.escWasDown {
		m.cancel()
	}
	m.escWasDown = down
}

func (m *marquee) paint(hdc win.HDC) {
	m.paintBackground(hdc)

	win.SetBkMode(hdc, win.TRANSPARENT)
	win.SetTextColor(hdc, win.COLORREF(hintColor))
	win.TextOut(hdc, 16, 16, syscall.StringToUTF16Ptr(Hint), int32(len(Hint)))

	if !m.dragging {
		return
	}
	pen, _, _ := procCreatePen.Call(0, penWidth, penColor)
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))
	r := image.Rectangle{Min: m.start, Max: m.end}.Canon()
	procRectangle.Call(uintptr(hdc), uintptr(r.Min.X), uintptr(r.Min.Y), uintptr(r.Max.X), uintptr(r.Max.Y))
	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))
}

func (m *marquee) paintBackground(hdc win.HDC) {
	memDC := win.CreateCompatibleDC(hdc)
	if memDC == 0 {
		return
	}
	defer win.DeleteDC(memDC)

	header := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(m.size.X),
		BiHeight:      -int32(m.size.Y), // top-down
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	var bits unsafe.Pointer
	bmp := win.CreateDIBSection(memDC, &header, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bmp == 0 {
		return
	}
	defer win.DeleteObject(win.HGDIOBJ(bmp))

	copy(unsafe.Slice((*byte)(bits), len(m.bgra)), m.bgra)
	old := win.SelectObject(memDC, win.HGDIOBJ(bmp))
	defer win.SelectObject(memDC, old)
	win.BitBlt(hdc, 0, 0, int32(m.size.X), int32(m.size.Y), memDC, 0, 0, win.SRCCOPY)
}
