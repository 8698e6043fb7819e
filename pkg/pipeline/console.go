package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"bulk/pkg/command"
)

// ConsoleSink prints each command on its own line and forwards it.
type ConsoleSink struct {
	NopBlockHooks

	out  io.Writer
	next Processor
	log  *slog.Logger
}

// NewConsoleSink writes to out, or stdout when out is nil.
func NewConsoleSink(out io.Writer, next Processor, log *slog.Logger) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = discardLogger()
	}

	return &ConsoleSink{
		out:  out,
		next: next,
		log:  log.With("component", "pipeline.console"),
	}
}

func (s *ConsoleSink) ProcessCommand(cmd command.Command) {
	if _, err := fmt.Fprintln(s.out, cmd.Text); err != nil {
		s.log.Warn("Console write failed", "error", err)
	}

	if s.next != nil {
		s.next.ProcessCommand(cmd)
	}
}
