package pipeline

import (
	"sync"
	"time"
)

// FlushReason records which rule emitted a batch.
type FlushReason string

const (
	FlushSize       FlushReason = "size"
	FlushBlockStart FlushReason = "block_start"
	FlushBlockEnd   FlushReason = "block_end"
	FlushShutdown   FlushReason = "shutdown"
)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	// CommandsRead counts every input line, block delimiters included.
	CommandsRead uint64

	// CommandsBatched counts commands that left the batcher inside a flush.
	CommandsBatched uint64

	// Flushes counts emitted batches per reason.
	Flushes map[FlushReason]uint64

	// Dropped counts commands discarded because their block never closed.
	Dropped uint64

	// StrayCloses counts close tokens seen outside any block.
	StrayCloses uint64

	// FileErrors counts failed log file writes.
	FileErrors uint64

	MinBatchSize int
	MaxBatchSize int

	StartTime      time.Time
	LastUpdateTime time.Time
}

// TotalFlushes sums flushes over all reasons.
func (s Stats) TotalFlushes() uint64 {
	var total uint64
	for _, n := range s.Flushes {
		total += n
	}
	return total
}

// StatsCollector accumulates pipeline counters.
//
// The pipeline itself runs on a single goroutine; the mutex lets a caller
// read a snapshot from elsewhere, e.g. a signal handler.
type StatsCollector struct {
	mu    sync.Mutex
	stats Stats
}

// NewStatsCollector returns a collector whose start time is now.
func NewStatsCollector() *StatsCollector {
	now := time.Now()
	return &StatsCollector{
		stats: Stats{
			Flushes:        make(map[FlushReason]uint64),
			StartTime:      now,
			LastUpdateTime: now,
		},
	}
}

func (c *StatsCollector) recordRead() {
	c.update(func(s *Stats) { s.CommandsRead++ })
}

func (c *StatsCollector) recordFlush(reason FlushReason, size int) {
	c.update(func(s *Stats) {
		s.Flushes[reason]++
		s.CommandsBatched += uint64(size)
		if s.MinBatchSize == 0 || size < s.MinBatchSize {
			s.MinBatchSize = size
		}
		if size > s.MaxBatchSize {
			s.MaxBatchSize = size
		}
	})
}

func (c *StatsCollector) recordDropped(n int) {
	c.update(func(s *Stats) { s.Dropped += uint64(n) })
}

func (c *StatsCollector) recordStrayClose() {
	c.update(func(s *Stats) { s.StrayCloses++ })
}

func (c *StatsCollector) recordFileError() {
	c.update(func(s *Stats) { s.FileErrors++ })
}

func (c *StatsCollector) update(fn func(*Stats)) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats.Flushes == nil {
		c.stats.Flushes = make(map[FlushReason]uint64)
	}
	fn(&c.stats)
	c.stats.LastUpdateTime = time.Now()
}

// Snapshot returns a copy of the current counters.
func (c *StatsCollector) Snapshot() Stats {
	if c == nil {
		return Stats{Flushes: map[FlushReason]uint64{}}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.Flushes = make(map[FlushReason]uint64, len(c.stats.Flushes))
	for reason, n := range c.stats.Flushes {
		out.Flushes[reason] = n
	}
	return out
}
