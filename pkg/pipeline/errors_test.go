package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"
)

func TestWriteErrorCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "missing directory", err: &os.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, want: WriteMissingDir},
		{name: "permission", err: &os.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, want: WriteNoAccess},
		{name: "disk full", err: &os.PathError{Op: "write", Path: "x", Err: syscall.ENOSPC}, want: WriteDiskFull},
		{name: "other", err: errors.New("boom"), want: WriteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newWriteError("/logs/bulk1.log", tt.err)
			if got := WriteCategory(err); got != tt.want {
				t.Fatalf("WriteCategory = %q, want %q", got, tt.want)
			}
			if got := WriteCategory(fmt.Errorf("flush: %w", err)); got != tt.want {
				t.Fatalf("wrapped WriteCategory = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteErrorMessageDropsPathWrapper(t *testing.T) {
	err := newWriteError("/logs/bulk1.log", &os.PathError{Op: "open", Path: "/logs/bulk1.log", Err: fs.ErrPermission})

	if got, want := err.Error(), "no_access /logs/bulk1.log: permission denied"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatal("expected error to unwrap to fs.ErrPermission")
	}
}

func TestWriteCategoryIgnoresOtherErrors(t *testing.T) {
	if newWriteError("x", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := WriteCategory(ErrInvalidBatchSize); got != "" {
		t.Fatalf("WriteCategory(config error) = %q, want empty", got)
	}
	if got := WriteCategory(nil); got != "" {
		t.Fatalf("WriteCategory(nil) = %q, want empty", got)
	}
}
