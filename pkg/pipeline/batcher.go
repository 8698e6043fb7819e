package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"bulk/pkg/command"
)

const (
	// BatchTag prefixes every joined batch.
	BatchTag = "bulk: "

	batchSeparator = ", "
)

// Batcher accumulates commands and emits them downstream as one joined
// command, either when the size threshold is reached or at block boundaries.
//
// Inside a block the threshold is ignored: the block is emitted whole when it
// finishes. Close drains a trailing partial batch unless a block is still
// open, in which case the block's commands are discarded.
type Batcher struct {
	size   int
	next   Processor
	batch  []command.Command
	forced bool
	closed bool

	log   *slog.Logger
	stats *StatsCollector
}

// BatcherOption customizes a Batcher.
type BatcherOption func(*Batcher)

// WithBatcherLogger sets the batcher logger.
func WithBatcherLogger(log *slog.Logger) BatcherOption {
	return func(b *Batcher) {
		if log != nil {
			b.log = log
		}
	}
}

// WithBatcherStats attaches a stats collector.
func WithBatcherStats(stats *StatsCollector) BatcherOption {
	return func(b *Batcher) { b.stats = stats }
}

// NewBatcher returns a batcher flushing every size commands into next.
func NewBatcher(size int, next Processor, opts ...BatcherOption) (*Batcher, error) {
	if size <= 0 {
		return nil, fmt.Errorf("new batcher with size %d: %w", size, ErrInvalidBatchSize)
	}

	b := &Batcher{
		size:  size,
		next:  next,
		batch: make([]command.Command, 0, size),
		log:   discardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("component", "pipeline.batcher")
	return b, nil
}

func (b *Batcher) ProcessCommand(cmd command.Command) {
	if b.closed {
		b.log.Debug("Command after close ignored", "text", cmd.Text)
		return
	}

	b.batch = append(b.batch, cmd)
	if !b.forced && len(b.batch) >= b.size {
		b.flush(FlushSize)
	}
}

// StartBlock drains whatever accumulated before the block and suspends the
// size threshold.
func (b *Batcher) StartBlock() {
	if b.closed {
		return
	}

	b.forced = true
	b.flush(FlushBlockStart)
}

// FinishBlock emits the whole block and restores the size threshold.
func (b *Batcher) FinishBlock() {
	if b.closed {
		return
	}

	b.forced = false
	b.flush(FlushBlockEnd)
}

// Close performs the terminal flush. It is safe to call more than once.
func (b *Batcher) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	if b.forced {
		if n := len(b.batch); n > 0 {
			b.stats.recordDropped(n)
			b.log.Warn("Unterminated block discarded", "commands", n)
		}
		b.batch = b.batch[:0]
		return nil
	}

	b.flush(FlushShutdown)
	return nil
}

// Pending returns a copy of the commands waiting for the next flush.
func (b *Batcher) Pending() []command.Command {
	out := make([]command.Command, len(b.batch))
	copy(out, b.batch)
	return out
}

// Forced reports whether the batcher is inside a block.
func (b *Batcher) Forced() bool {
	return b.forced
}

// Size returns the configured threshold.
func (b *Batcher) Size() int {
	return b.size
}

func (b *Batcher) flush(reason FlushReason) {
	defer func() { b.batch = b.batch[:0] }()

	if len(b.batch) == 0 || b.next == nil {
		return
	}

	joined := command.Command{
		Text:      BatchTag + joinTexts(b.batch),
		Timestamp: b.batch[0].Timestamp,
	}
	b.stats.recordFlush(reason, len(b.batch))
	b.log.Debug("Batch flushed", "reason", string(reason), "commands", len(b.batch))
	b.next.ProcessCommand(joined)
}

func joinTexts(batch []command.Command) string {
	var sb strings.Builder
	for i, cmd := range batch {
		if i > 0 {
			sb.WriteString(batchSeparator)
		}
		sb.WriteString(cmd.Text)
	}
	return sb.String()
}
