//go:build !windows

package main

func enableDPIAwareness() {
	dpiStatus = "no DPI adjustment needed on this platform"
}
