package main

import (
	"strings"
	"testing"
)

func TestEnableDPIAwareness(t *testing.T) {
	old := dpiStatus
	t.Cleanup(func() { dpiStatus = old })

	enableDPIAwareness()
	first := dpiStatus
	if first == "" {
		t.Fatal("expected a DPI status after enableDPIAwareness")
	}
	// A second call must not panic; Windows reports the setting as already applied.
	enableDPIAwareness()
	if dpiStatus == "" {
		t.Error("expected a DPI status after the second call")
	}

	in := writeFile(t, "ocr.txt", "a,b\n")
	_, stderr, err := runCLI(t, "", "-v", "parse", "--file", in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "DPI: ") {
		t.Errorf("verbose output should report DPI status, got %q", stderr)
	}
}
