//go:build windows

package main

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const (
	processPerMonitorDPIAware = 2
	eAccessDenied             = 0x80070005
)

// enableDPIAwareness makes the process per-monitor DPI aware so window
// rectangles, display bounds and captured pixels share one coordinate
// space on scaled monitors. It must run before any window or capture call.
func enableDPIAwareness() {
	shcore := windows.NewLazySystemDLL("shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		switch uint32(ret) {
		case 0:
			dpiStatus = "per-monitor DPI awareness enabled"
		case eAccessDenied:
			dpiStatus = "DPI awareness already set for this process"
		default:
			dpiStatus = fmt.Sprintf("failed to set per-monitor DPI awareness, error code: %#x", uint32(ret))
		}
		return
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		dpiStatus = "SetProcessDPIAware not available, no DPI awareness set"
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret != 0 {
		dpiStatus = "system DPI awareness enabled (fallback)"
	} else {
		dpiStatus = "failed to set system DPI awareness (fallback)"
	}
}
