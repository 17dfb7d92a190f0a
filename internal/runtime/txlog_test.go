package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionLog_AppendStampsSeq(t *testing.T) {
	l := NewTransactionLog()

	a := l.Append(LogEntry{RunID: "r1", Iteration: 1, PreHash: "h0", PostHash: "h1"})
	b := l.Append(LogEntry{RunID: "r1", Iteration: 2, PreHash: "h1", PostHash: "h2"})
	c := l.Append(LogEntry{RunID: "r2", Iteration: 1, PreHash: "x0", PostHash: "x1", Seq: 99})

	assert.Equal(t, int64(1), a.Seq)
	assert.Equal(t, int64(2), b.Seq)
	assert.Equal(t, int64(3), c.Seq, "caller-provided seq is overwritten")
	assert.Equal(t, 3, l.Len())

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []LogEntry{a, b, c}, entries)

	assert.Equal(t, []LogEntry{a, b}, l.RunEntries("r1"))
	assert.Equal(t, []LogEntry{c}, l.RunEntries("r2"))
	assert.Empty(t, l.RunEntries("r3"))
}

func TestTransactionLog_EntriesIsACopy(t *testing.T) {
	l := NewTransactionLog()
	l.Append(LogEntry{RunID: "r", PreHash: "a", PostHash: "b"})

	entries := l.Entries()
	entries[0].PostHash = "tampered"
	assert.Equal(t, "b", l.Entries()[0].PostHash)
}

func TestTransactionLog_ConcurrentAppend(t *testing.T) {
	l := NewTransactionLog()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				l.Append(LogEntry{RunID: "r"})
			}
		}()
	}
	wg.Wait()

	entries := l.Entries()
	require.Len(t, entries, 1000)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq, "entries are stored in seq order")
	}
}

func TestHashChain(t *testing.T) {
	chain := HashChain([]LogEntry{
		{PreHash: "a", PostHash: "b"},
		{PreHash: "b", PostHash: "c"},
	})
	assert.Equal(t, [][2]string{{"a", "b"}, {"b", "c"}}, chain)
	assert.Empty(t, HashChain(nil))
}

func TestDiverges(t *testing.T) {
	ab := [][2]string{{"a", "b"}}
	abc := [][2]string{{"a", "b"}, {"b", "c"}}
	abd := [][2]string{{"a", "b"}, {"b", "d"}}

	assert.Equal(t, -1, diverges(abc, abc))
	assert.Equal(t, -1, diverges(nil, nil))
	assert.Equal(t, 1, diverges(abc, abd))
	assert.Equal(t, 1, diverges(ab, abc))
	assert.Equal(t, 1, diverges(abc, ab))
	assert.Equal(t, 0, diverges(nil, ab))
}
