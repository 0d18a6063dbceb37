package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"screen-table-scanner/src/table"
)

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := table.Table{Rows: [][]string{
		{"Name", "Comment", "Amount"},
		{"Alice", "likes, commas", "1,000"},
		{"Bob", `said "hi"`, ""},
		{"Carol", "multi\nline", "7"},
		{"Dörte", "ünïcødé", "€5"},
	}}
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := WriteCSV(tbl, path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got.Rows, tbl.Rows) {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", got.Rows, tbl.Rows)
	}
}

func TestWriteCSVHeaderIsFirstLine(t *testing.T) {
	tbl := table.Reconstruct("Name    Score\nAlice   10\nBob     7")
	path := filepath.Join(t.TempDir(), "scores.csv")
	if err := WriteCSV(tbl, path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Name,Score\nAlice,10\nBob,7\n"
	if string(data) != want {
		t.Errorf("file content = %q, want %q", data, want)
	}
}

func TestWriteCSVReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte("old,content\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteCSV(table.Reconstruct("A|B"), path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "A,B\n" {
		t.Errorf("file content = %q", data)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteCSVMissingDirectoryLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")

	err := WriteCSV(table.Reconstruct("A|B"), path)
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected underlying cause to be preserved, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("expected no file at target, stat err=%v", statErr)
	}
}

func TestWriteCSVFailureKeepsPriorFile(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the final rename fail after the
	// temp file has been fully written.
	path := filepath.Join(dir, "out.csv")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := WriteCSV(table.Reconstruct("A|B"), path)
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
	if st, statErr := os.Stat(path); statErr != nil || !st.IsDir() {
		t.Errorf("prior entry at target changed: %v %v", st, statErr)
	}
	assertNoTempFiles(t, dir)
}

func TestWriteCSVRenameFailureKeepsPriorFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	prior := []byte("Old,Header\n1,2\n")
	if err := os.WriteFile(path, prior, 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("rename refused")
	rename = func(string, string) error { return boom }
	t.Cleanup(func() { rename = os.Rename })

	err := WriteCSV(table.Reconstruct("A|B\nC|D"), path)
	if !errors.Is(err, ErrWriteFailure) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped rename failure, got %v", err)
	}
	got, readErr := os.ReadFile(path)
	if readErr != nil || !bytes.Equal(got, prior) {
		t.Errorf("prior file changed: %q, err=%v", got, readErr)
	}
	assertNoTempFiles(t, dir)
}

func TestWriteCSVReadOnlyDirectoryKeepsPriorFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions not enforced here")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	prior := []byte("Old\n")
	if err := os.WriteFile(path, prior, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	err := WriteCSV(table.Reconstruct("A|B"), path)
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
	got, readErr := os.ReadFile(path)
	if readErr != nil || !bytes.Equal(got, prior) {
		t.Errorf("prior file changed: %q, err=%v", got, readErr)
	}
}

func TestWriteCSVReadOnlyDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions not enforced here")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	err := WriteCSV(table.Reconstruct("A|B"), filepath.Join(dir, "out.csv"))
	if !errors.Is(err, ErrWriteFailure) || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("expected permission write failure, got %v", err)
	}
}

func TestEncodeEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, table.Table{}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty table, got %q", buf.String())
	}
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 5, 2, 0, time.UTC)
	if got := DefaultFilename(now); got != "extracted_data_20260307_090502.csv" {
		t.Errorf("DefaultFilename = %q", got)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}
