package kvs

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreSetGet(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("a", "1"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestStoreOverwrite(t *testing.T) {
	// P2
	s := openTestStore(t)
	require.NoError(t, s.Set("k", "v1"))
	require.NoError(t, s.Set("k", "v2"))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestStoreRemove(t *testing.T) {
	// P3
	s := openTestStore(t)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Remove("k"))
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreRemoveMissing(t *testing.T) {
	// P4
	s := openTestStore(t)
	err := s.Remove("nope")
	require.Error(t, err)
	require.True(t, ErrKeyNotFound(err))

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Remove("k"))
	err = s.Remove("k")
	require.True(t, ErrKeyNotFound(err))
}

func TestStoreReplay(t *testing.T) {
	// P1 / S3
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	_, ok, err = reopened.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreReplayTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Close())

	// Simulate a crash mid-write: append a partial JSON object.
	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"Set":{"key":"partial","valu`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	_, ok, err = reopened.Get("partial")
	require.NoError(t, err)
	require.False(t, ok)

	// The store must still be writable after truncation.
	require.NoError(t, reopened.Set("new", "1"))
	v, ok, err = reopened.Get("new")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestStoreCompaction(t *testing.T) {
	// P5 / S4
	s := openTestStore(t, WithCompactionThreshold(512))

	// With records of 41-43 bytes and a 512-byte threshold, the 189th Set
	// (value-188) is the one that pushes redundantSize over the threshold, so
	// the loop ends on a freshly compacted log.
	for i := 0; i < 189; i++ {
		require.NoError(t, s.Set("churn", fmt.Sprintf("value-%d", i)))
	}

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	// After compaction the log holds exactly one live record, which must be
	// far smaller than the 189 records written.
	require.Less(t, info.Size(), int64(512))

	v, ok, err := s.Get("churn")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value-188", v)

	require.Equal(t, int64(0), s.in.redundantSize)
	require.Equal(t, 1, s.in.index.Len())
}

func TestStoreConcurrentDisjointKeys(t *testing.T) {
	// P6
	s := openTestStore(t)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			clone := s.Clone()
			key := fmt.Sprintf("key-%d", i)
			for j := 0; j < 50; j++ {
				val := fmt.Sprintf("v-%d", j)
				require.NoError(t, clone.Set(key, val))
				v, ok, err := clone.Get(key)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, val, v)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		v, ok, err := s.Get(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v-49", v)
	}
}

func TestStoreScenarioS1(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("a", "1"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestStoreScenarioS2(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))
	require.NoError(t, s.Remove("a"))
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}
