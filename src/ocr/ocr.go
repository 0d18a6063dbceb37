package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"
)

const (
	// PageSegMode 6: assume a single uniform block of text.
	PageSegMode = 6
	// EngineMode 3: default, based on what is available.
	EngineMode      = 3
	DefaultLanguage = "eng"
	DefaultTimeout  = 20 * time.Second
)

var (
	// ErrUnavailable means the recognition engine is not installed or cannot be started.
	ErrUnavailable = errors.New("ocr engine unavailable")
	// ErrTimeout means recognition did not finish within the deadline.
	ErrTimeout = errors.New("ocr timed out")
)

// Engine recognizes the text in an image and returns it as one UTF-8 block.
// Implementations must honour ctx cancellation.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
	Version(ctx context.Context) (string, error)
}

// Options configures engine construction. Page segmentation and engine mode
// are fixed and intentionally absent.
type Options struct {
	// Engine selects the implementation: "tesseract" (default) or "gosseract".
	Engine string
	// BinaryPath overrides tesseract discovery.
	BinaryPath string
	Language   string
}

// New returns the engine selected by opts.
func New(opts Options) (Engine, error) {
	lang := opts.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	switch opts.Engine {
	case "", "tesseract":
		return &Tesseract{Path: opts.BinaryPath, Language: lang}, nil
	case "gosseract":
		return NewGosseract(lang)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrUnavailable, opts.Engine)
	}
}

// Recognize runs engine against img with a bounded duration. Deadline
// expiry is reported as ErrTimeout; there is no retry.
func Recognize(ctx context.Context, engine Engine, img image.Image, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := engine.Recognize(jobCtx, img)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			log.Printf("OCR: %s timed out after %v", engine.Name(), elapsed)
			if errors.Is(err, ErrTimeout) {
				return "", err
			}
			return "", fmt.Errorf("%w after %v: %v", ErrTimeout, timeout, err)
		}
		log.Printf("OCR: %s failed after %v: %v", engine.Name(), elapsed, err)
		return "", err
	}
	log.Printf("OCR: %s completed in %v, %d characters", engine.Name(), elapsed, len(text))
	return text, nil
}

// Status describes engine availability for the start-up check.
type Status struct {
	Engine    string
	Available bool
	Version   string
	Hint      string
}

// Check asks engine for its version and fills in install hints when it is missing.
func Check(ctx context.Context, engine Engine) Status {
	st := Status{Engine: engine.Name()}
	version, err := engine.Version(ctx)
	if err != nil {
		log.Printf("OCR check failed: %v", err)
		st.Hint = InstallHint
		return st
	}
	st.Available = true
	st.Version = version
	return st
}

// InstallHint is shown when the engine cannot be found.
const InstallHint = "Tesseract OCR is required.\n" +
	"  macOS:   brew install tesseract\n" +
	"  Ubuntu:  apt-get install tesseract-ocr\n" +
	"  Windows: https://github.com/UB-Mannheim/tesseract/wiki\n" +
	"Set TESSERACT_PATH if it is installed outside PATH."
