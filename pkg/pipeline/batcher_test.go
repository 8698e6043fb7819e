package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bulk/pkg/command"
)

func TestNewBatcherRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1, -100} {
		_, err := NewBatcher(size, nil)
		if !errors.Is(err, ErrInvalidBatchSize) {
			t.Fatalf("NewBatcher(%d) error = %v, want ErrInvalidBatchSize", size, err)
		}
	}
}

func TestBatcherSizeThresholdProperty(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for k := 0; k <= 12; k++ {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				rec := &recordingProcessor{}
				b, err := NewBatcher(n, rec)
				require.NoError(t, err)

				texts := make([]string, k)
				for i := range texts {
					texts[i] = fmt.Sprintf("c%d", i)
				}
				for _, cmd := range commandsAt(texts...) {
					b.ProcessCommand(cmd)
				}
				require.Len(t, rec.commands, k/n, "flushes before close")

				require.NoError(t, b.Close())
				want := k / n
				if k%n != 0 {
					want++
				}
				require.Len(t, rec.commands, want, "flushes after close")

				var rebuilt []string
				for _, text := range rec.texts() {
					require.True(t, strings.HasPrefix(text, BatchTag))
					rebuilt = append(rebuilt, strings.Split(strings.TrimPrefix(text, BatchTag), ", ")...)
				}
				if k == 0 {
					require.Empty(t, rebuilt)
				} else {
					require.Equal(t, texts, rebuilt)
				}
			})
		}
	}
}

func TestBatcherFlushUsesFirstTimestamp(t *testing.T) {
	rec := &recordingProcessor{}
	b, err := NewBatcher(3, rec)
	require.NoError(t, err)

	cmds := commandsAt("a", "b", "c")
	for _, cmd := range cmds {
		b.ProcessCommand(cmd)
	}

	require.Len(t, rec.commands, 1)
	require.Equal(t, "bulk: a, b, c", rec.commands[0].Text)
	require.True(t, rec.commands[0].Timestamp.Equal(cmds[0].Timestamp))
}

func TestBatcherSingleCommandHasNoSeparator(t *testing.T) {
	rec := &recordingProcessor{}
	b, err := NewBatcher(1, rec)
	require.NoError(t, err)

	b.ProcessCommand(command.Command{Text: "only", Timestamp: testEpoch})
	require.Equal(t, []string{"bulk: only"}, rec.texts())
}

func TestBatcherBlockOverridesThreshold(t *testing.T) {
	rec := &recordingProcessor{}
	b, err := NewBatcher(2, rec)
	require.NoError(t, err)

	cmds := commandsAt("pre", "a", "b", "c", "d")
	b.ProcessCommand(cmds[0])
	b.StartBlock()
	require.True(t, b.Forced())
	for _, cmd := range cmds[1:] {
		b.ProcessCommand(cmd)
	}
	require.Equal(t, []string{"bulk: pre"}, rec.texts())
	require.Len(t, b.Pending(), 4)

	b.FinishBlock()
	require.False(t, b.Forced())
	require.Equal(t, []string{"bulk: pre", "bulk: a, b, c, d"}, rec.texts())
	require.True(t, rec.commands[1].Timestamp.Equal(cmds[1].Timestamp))

	require.NoError(t, b.Close())
	require.Len(t, rec.commands, 2, "empty batch must not flush at close")
}

func TestBatcherEmptyBlockStartIsNoop(t *testing.T) {
	rec := &recordingProcessor{}
	b, err := NewBatcher(2, rec)
	require.NoError(t, err)

	b.StartBlock()
	require.Empty(t, rec.commands)
	b.FinishBlock()
	require.Empty(t, rec.commands)
}

func TestBatcherCloseDiscardsUnterminatedBlock(t *testing.T) {
	rec := &recordingProcessor{}
	stats := NewStatsCollector()
	b, err := NewBatcher(10, rec, WithBatcherStats(stats))
	require.NoError(t, err)

	b.StartBlock()
	for _, cmd := range commandsAt("x", "y") {
		b.ProcessCommand(cmd)
	}
	require.NoError(t, b.Close())

	require.Empty(t, rec.commands)
	require.Empty(t, b.Pending())
	require.Equal(t, uint64(2), stats.Snapshot().Dropped)
}

func TestBatcherCloseIsIdempotent(t *testing.T) {
	rec := &recordingProcessor{}
	b, err := NewBatcher(5, rec)
	require.NoError(t, err)

	b.ProcessCommand(command.Command{Text: "tail", Timestamp: testEpoch})
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	require.Equal(t, []string{"bulk: tail"}, rec.texts())

	b.ProcessCommand(command.Command{Text: "late", Timestamp: testEpoch})
	b.FinishBlock()
	require.Equal(t, []string{"bulk: tail"}, rec.texts())
}

func TestBatcherWithoutNextStillClears(t *testing.T) {
	b, err := NewBatcher(2, nil)
	require.NoError(t, err)

	for _, cmd := range commandsAt("a", "b", "c") {
		b.ProcessCommand(cmd)
	}
	if got := len(b.Pending()); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
}

func TestBatcherStatsByReason(t *testing.T) {
	rec := &recordingProcessor{}
	stats := NewStatsCollector()
	b, err := NewBatcher(2, rec, WithBatcherStats(stats))
	require.NoError(t, err)

	cmds := commandsAt("a", "b", "c", "d", "e")
	b.ProcessCommand(cmds[0])
	b.ProcessCommand(cmds[1])
	b.ProcessCommand(cmds[2])
	b.StartBlock()
	b.ProcessCommand(cmds[3])
	b.FinishBlock()
	b.ProcessCommand(cmds[4])
	require.NoError(t, b.Close())

	s := stats.Snapshot()
	require.Equal(t, uint64(1), s.Flushes[FlushSize])
	require.Equal(t, uint64(1), s.Flushes[FlushBlockStart])
	require.Equal(t, uint64(1), s.Flushes[FlushBlockEnd])
	require.Equal(t, uint64(1), s.Flushes[FlushShutdown])
	require.Equal(t, uint64(4), s.TotalFlushes())
	require.Equal(t, uint64(5), s.CommandsBatched)
	require.Equal(t, 1, s.MinBatchSize)
	require.Equal(t, 2, s.MaxBatchSize)
}
