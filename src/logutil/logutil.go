package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const (
	logFileName  = "screen_table_debug.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Setup enables file logging with basic size-based rotation (10MB, max 3 files).
// When disabled, logs are discarded so stdout stays clean for CSV output.
func Setup(enableFileLogging bool) {
	SetupIn(".", enableFileLogging)
}

// SetupIn is Setup with an explicit directory for the log file and its archives.
func SetupIn(dir string, enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	w, err := newRotatingWriter(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	log.SetOutput(w)
}

// Verbose routes log output to w (typically stderr) instead of the file.
func Verbose(w io.Writer) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(w)
}

type rotatingWriter struct {
	dir string
	f   *os.File
}

func newRotatingWriter(dir string) (*rotatingWriter, error) {
	w := &rotatingWriter{dir: dir}
	rotateIfNeeded(dir)
	f, err := os.OpenFile(w.path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	w.f = f
	return w, nil
}

func (w *rotatingWriter) path() string { return filepath.Join(w.dir, logFileName) }

func (w *rotatingWriter) Write(p []byte) (int, error) {
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotate(w.dir)
		nf, err := os.OpenFile(w.path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func rotateIfNeeded(dir string) {
	if st, err := os.Stat(filepath.Join(dir, logFileName)); err == nil && st.Size() > maxSizeBytes {
		rotate(dir)
	}
}

// rotate shifts archives .1 -> .2 -> .3 (oldest discarded) and moves the
// current file to .1.
func rotate(dir string) {
	_ = os.Remove(archiveName(dir, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(dir, i), archiveName(dir, i+1))
	}
	_ = os.Rename(filepath.Join(dir, logFileName), archiveName(dir, 1))
}

func archiveName(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d", logFileName, n))
}
