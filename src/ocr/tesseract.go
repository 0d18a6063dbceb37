package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Tesseract runs the tesseract command-line program. The image is streamed
// as PNG on stdin and the text read from stdout.
type Tesseract struct {
	// Path to the binary; empty means discover it.
	Path     string
	Language string
}

func (t *Tesseract) Name() string { return "tesseract" }

// Args returns the fixed command-line configuration.
func (t *Tesseract) Args() []string {
	lang := t.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	return []string{
		"stdin", "stdout",
		"-l", lang,
		"--oem", strconv.Itoa(EngineMode),
		"--psm", strconv.Itoa(PageSegMode),
	}
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	bin, err := t.binary()
	if err != nil {
		return "", err
	}

	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("failed to encode image as PNG: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, t.Args()...)
	cmd.Stdin = &in
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, ctxErr)
		}
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Version returns the first line of `tesseract --version`.
func (t *Tesseract) Version(ctx context.Context) (string, error) {
	bin, err := t.binary()
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, bin, "--version").CombinedOutput()
	if err != nil {
		// a binary that cannot report its version cannot be used either
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

func (t *Tesseract) binary() (string, error) {
	if t.Path != "" {
		if _, err := os.Stat(t.Path); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return t.Path, nil
	}
	if p, err := exec.LookPath("tesseract"); err == nil {
		return p, nil
	}
	for _, p := range windowsCandidates() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tesseract not found in PATH", ErrUnavailable)
}

// windowsCandidates lists the usual installer locations, which are not
// added to PATH by default.
func windowsCandidates() []string {
	if runtime.GOOS != "windows" {
		return nil
	}
	paths := []string{
		`C:\Program Files\Tesseract-OCR\tesseract.exe`,
		`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		paths = append(paths, filepath.Join(local, "Programs", "Tesseract-OCR", "tesseract.exe"))
	}
	return paths
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
