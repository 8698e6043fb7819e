package pipeline

import (
	"log/slog"

	"bulk/pkg/command"
)

const (
	DefaultOpenToken  = "{"
	DefaultCloseToken = "}"
)

// BlockFramer turns block delimiters into StartBlock/FinishBlock calls on the
// next stage and forwards every other command unchanged.
//
// Only the outermost delimiters produce callbacks. A close token outside any
// block is consumed and the depth stays at zero.
type BlockFramer struct {
	NopBlockHooks

	next       Processor
	openToken  string
	closeToken string
	depth      int

	log   *slog.Logger
	stats *StatsCollector
}

// FramerOption customizes a BlockFramer.
type FramerOption func(*BlockFramer)

// WithTokens overrides the block delimiters.
func WithTokens(openToken string, closeToken string) FramerOption {
	return func(f *BlockFramer) {
		if openToken != "" {
			f.openToken = openToken
		}
		if closeToken != "" {
			f.closeToken = closeToken
		}
	}
}

// WithFramerLogger sets the logger used for malformed nesting warnings.
func WithFramerLogger(log *slog.Logger) FramerOption {
	return func(f *BlockFramer) {
		if log != nil {
			f.log = log
		}
	}
}

// WithFramerStats attaches a stats collector.
func WithFramerStats(stats *StatsCollector) FramerOption {
	return func(f *BlockFramer) { f.stats = stats }
}

// NewBlockFramer returns a framer feeding next.
func NewBlockFramer(next Processor, opts ...FramerOption) *BlockFramer {
	f := &BlockFramer{
		next:       next,
		openToken:  DefaultOpenToken,
		closeToken: DefaultCloseToken,
		log:        discardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "pipeline.framer")
	return f
}

func (f *BlockFramer) ProcessCommand(cmd command.Command) {
	f.stats.recordRead()

	switch cmd.Text {
	case f.openToken:
		f.depth++
		if f.depth == 1 && f.next != nil {
			f.next.StartBlock()
		}
	case f.closeToken:
		if f.depth == 0 {
			f.stats.recordStrayClose()
			f.log.Warn("Close token outside block ignored", "token", cmd.Text)
			return
		}
		f.depth--
		if f.depth == 0 && f.next != nil {
			f.next.FinishBlock()
		}
	default:
		if f.next != nil {
			f.next.ProcessCommand(cmd)
		}
	}
}

// Depth reports the current nesting depth.
func (f *BlockFramer) Depth() int {
	return f.depth
}

// InBlock reports whether an outer block is open.
func (f *BlockFramer) InBlock() bool {
	return f.depth > 0
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
