package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

var (
	// ErrInvalidBatchSize is returned when a batcher is built with a non-positive size.
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")

	// ErrInvalidGranularity is returned for a file name resolution other than s or ms.
	ErrInvalidGranularity = errors.New("granularity must be s or ms")
)

// Categories of log file write failures.
const (
	WriteMissingDir = "missing_dir"
	WriteNoAccess   = "no_access"
	WriteDiskFull   = "disk_full"
	WriteFailed     = "write_failed"
)

// WriteError reports a log file that could not be written.
type WriteError struct {
	Category string
	Path     string
	Err      error
}

func (e *WriteError) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("%s %s: %v", e.Category, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// newWriteError classifies a failed write of path. The os.PathError wrapper is
// dropped since Path already names the file.
func newWriteError(path string, err error) error {
	if err == nil {
		return nil
	}

	cause := err
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		cause = pathErr.Err
	}

	return &WriteError{Category: writeCategory(err), Path: path, Err: cause}
}

func writeCategory(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return WriteMissingDir
	case errors.Is(err, fs.ErrPermission):
		return WriteNoAccess
	case errors.Is(err, syscall.ENOSPC):
		return WriteDiskFull
	default:
		return WriteFailed
	}
}

// WriteCategory returns the category of a WriteError anywhere in err's chain,
// or "" when err is not a write failure.
func WriteCategory(err error) string {
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		return writeErr.Category
	}
	return ""
}
