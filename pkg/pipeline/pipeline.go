package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bulk/pkg/command"
)

// Options configures a Pipeline.
type Options struct {
	BatchSize   int
	Stdout      io.Writer
	OutputDir   string
	Granularity Granularity
	OpenToken   string
	CloseToken  string
	Clock       command.Clock
	Logger      *slog.Logger
	Stats       *StatsCollector
}

// Pipeline owns the fixed chain framer -> batcher -> console -> file log.
type Pipeline struct {
	framer  *BlockFramer
	batcher *Batcher
	console *ConsoleSink
	files   *FileLogSink

	clock command.Clock
	log   *slog.Logger
	stats *StatsCollector
}

// New wires the chain. It fails only on an invalid batch size.
func New(opts Options) (*Pipeline, error) {
	log := opts.Logger
	if log == nil {
		log = discardLogger()
	}
	stats := opts.Stats
	if stats == nil {
		stats = NewStatsCollector()
	}

	files := NewFileLogSink(opts.OutputDir,
		WithGranularity(opts.Granularity),
		WithFileLogger(log),
		WithFileStats(stats),
	)
	console := NewConsoleSink(opts.Stdout, files, log)
	batcher, err := NewBatcher(opts.BatchSize, console,
		WithBatcherLogger(log),
		WithBatcherStats(stats),
	)
	if err != nil {
		return nil, err
	}
	framer := NewBlockFramer(batcher,
		WithTokens(opts.OpenToken, opts.CloseToken),
		WithFramerLogger(log),
		WithFramerStats(stats),
	)

	return &Pipeline{
		framer:  framer,
		batcher: batcher,
		console: console,
		files:   files,
		clock:   opts.Clock,
		log:     log.With("component", "pipeline"),
		stats:   stats,
	}, nil
}

// Run feeds every line of r through the chain until end of stream, then
// performs the terminal flush. The flush happens even when reading fails.
func (p *Pipeline) Run(r io.Reader) (err error) {
	defer func() {
		if closeErr := p.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	reader := bufio.NewReader(r)
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			p.Process(strings.TrimSuffix(line, "\r"))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
	}
}

// Process pushes a single input line into the chain.
func (p *Pipeline) Process(line string) {
	p.framer.ProcessCommand(p.clock.Stamp(line))
}

// Close performs the terminal flush without reading further input. Commands
// of a block still open at this point are dropped.
func (p *Pipeline) Close() error {
	if p.framer.InBlock() {
		p.log.Warn("Input ended inside block", "depth", p.framer.Depth())
	}

	return p.batcher.Close()
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return p.stats.Snapshot()
}

// FileErr returns the most recent log file failure.
func (p *Pipeline) FileErr() error {
	return p.files.LastError()
}

// LogSummary writes the counters at info level.
func (p *Pipeline) LogSummary() {
	s := p.Stats()
	p.log.Info("Pipeline finished",
		"commands", s.CommandsRead,
		"batched", s.CommandsBatched,
		"flushes", s.TotalFlushes(),
		"size_flushes", s.Flushes[FlushSize],
		"block_flushes", s.Flushes[FlushBlockStart]+s.Flushes[FlushBlockEnd],
		"shutdown_flushes", s.Flushes[FlushShutdown],
		"dropped", s.Dropped,
		"stray_closes", s.StrayCloses,
		"file_errors", s.FileErrors,
	)
}
