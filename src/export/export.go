package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"screen-table-scanner/src/table"
)

// ErrWriteFailure wraps every I/O failure during export. Exports are
// retryable, typically with a different destination.
var ErrWriteFailure = errors.New("write failure")

// rename is replaced in tests to fail the final step.
var rename = os.Rename

// DefaultFilename returns the suggested file name for an export made at now.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("extracted_data_%s.csv", now.Format("20060102_150405"))
}

// Encode writes t as CSV to w. Row 0 is the header line.
func Encode(w io.Writer, t table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	return nil
}

// WriteCSV writes t to path all-or-nothing: the data goes to a temporary
// file in the same directory which is synced and renamed over path. On
// failure the temporary file is removed and any existing file at path is
// left untouched.
func WriteCSV(t table.Table, path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %w", ErrWriteFailure, dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Printf("Export: failed to remove temp file %s: %v", tmpName, rmErr)
			}
		}
	}()

	if err = Encode(tmp, t); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrWriteFailure, tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrWriteFailure, tmpName, err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrWriteFailure, tmpName, err)
	}
	if err = rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename to %s: %w", ErrWriteFailure, path, err)
	}

	log.Printf("Export: wrote %d rows x %d columns to %s", t.Len(), t.Columns(), path)
	return nil
}

// Read parses a CSV file back into a Table.
func Read(path string) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	return table.Table{Rows: rows}, nil
}
