package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"bulk/pkg/command"
)

// Granularity selects the timestamp resolution used in log file names.
type Granularity string

const (
	GranularitySeconds      Granularity = "s"
	GranularityMilliseconds Granularity = "ms"
)

const (
	logFilePrefix = "bulk"
	logFileSuffix = ".log"
)

// ParseGranularity accepts "s"/"seconds" and "ms"/"milliseconds"; empty means seconds.
func ParseGranularity(value string) (Granularity, error) {
	switch value {
	case "", "s", "sec", "seconds":
		return GranularitySeconds, nil
	case "ms", "millis", "milliseconds":
		return GranularityMilliseconds, nil
	default:
		return "", fmt.Errorf("%w, got %q", ErrInvalidGranularity, value)
	}
}

// FileLogSink writes each command to its own bulk<ticks>.log file.
//
// Two commands sharing a tick write the same file; the later one wins.
// Write failures are logged and counted, and the chain keeps going.
type FileLogSink struct {
	NopBlockHooks

	dir         string
	granularity Granularity
	next        Processor
	lastErr     error

	log   *slog.Logger
	stats *StatsCollector
}

// FileLogOption customizes a FileLogSink.
type FileLogOption func(*FileLogSink)

// WithGranularity sets the file name tick resolution.
func WithGranularity(g Granularity) FileLogOption {
	return func(s *FileLogSink) {
		if g != "" {
			s.granularity = g
		}
	}
}

// WithFileLogger sets the sink logger.
func WithFileLogger(log *slog.Logger) FileLogOption {
	return func(s *FileLogSink) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFileStats attaches a stats collector.
func WithFileStats(stats *StatsCollector) FileLogOption {
	return func(s *FileLogSink) { s.stats = stats }
}

// WithNext forwards written commands to next.
func WithNext(next Processor) FileLogOption {
	return func(s *FileLogSink) { s.next = next }
}

// NewFileLogSink writes into dir, the working directory when dir is empty.
func NewFileLogSink(dir string, opts ...FileLogOption) *FileLogSink {
	if dir == "" {
		dir = "."
	}

	s := &FileLogSink{
		dir:         dir,
		granularity: GranularitySeconds,
		log:         discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "pipeline.filelog")
	return s
}

func (s *FileLogSink) ProcessCommand(cmd command.Command) {
	path := s.Path(cmd)
	if err := writeLogFile(path, cmd.Text); err != nil {
		s.lastErr = newWriteError(path, err)
		s.stats.recordFileError()
		s.log.Error("Log file write failed", "path", path, "category", WriteCategory(s.lastErr), "error", s.lastErr)
	} else {
		s.log.Debug("Log file written", "path", path, "bytes", len(cmd.Text))
	}

	if s.next != nil {
		s.next.ProcessCommand(cmd)
	}
}

// Path returns the file the command is written to.
func (s *FileLogSink) Path(cmd command.Command) string {
	return filepath.Join(s.dir, FileName(cmd, s.granularity))
}

// LastError returns the most recent write failure, if any.
func (s *FileLogSink) LastError() error {
	return s.lastErr
}

// FileName derives bulk<ticks>.log from the command timestamp.
func FileName(cmd command.Command, g Granularity) string {
	var ticks int64
	switch g {
	case GranularityMilliseconds:
		ticks = cmd.Timestamp.UnixMilli()
	default:
		ticks = cmd.Timestamp.Unix()
	}

	return logFilePrefix + strconv.FormatInt(ticks, 10) + logFileSuffix
}

func writeLogFile(path string, text string) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = file.WriteString(text)
	return err
}
