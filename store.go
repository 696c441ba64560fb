package kvs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/immutable"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// span is a (start, end) byte range into the log file.
type span struct {
	start int64
	end   int64
}

func (s span) len() int64 { return s.end - s.start }

// Store is a log-structured Engine: an append-only file of JSON-encoded Op
// records plus an in-memory index from key to the span of its last Set. The
// handle is a single pointer and is cheap to Clone, mirroring a shared
// reference-counted handle around one mutex-protected inner state.
type Store struct {
	in *storeInner
}

type storeInner struct {
	mu sync.Mutex

	dir  string
	path string
	fh   *os.File

	index         *immutable.SortedMap[string, span]
	redundantSize int64
	tailOffset    int64
	threshold     int64

	logger  log.Logger
	metrics *storeMetrics
}

var (
	_ Engine                  = (*Store)(nil)
	_ CloneableEngine[*Store] = (*Store)(nil)
)

// Open opens (creating if necessary) a log-structured store rooted at dir.
// If a log file already exists it is replayed to rebuild the index.
func Open(dir string, opts ...Option) (*Store, error) {
	const op = "kvs.Open"

	cfg := defaultStoreConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioErr(op, err)
	}
	path := filepath.Join(dir, LogFileName)

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ioErr(op, err)
	}

	index, redundantSize, tailOffset, err := replay(fh, cfg.logger)
	if err != nil {
		fh.Close()
		return nil, newErr(op, KindCodec, err)
	}

	if _, err := fh.Seek(tailOffset, io.SeekStart); err != nil {
		fh.Close()
		return nil, ioErr(op, err)
	}

	in := &storeInner{
		dir:           dir,
		path:          path,
		fh:            fh,
		index:         index,
		redundantSize: redundantSize,
		tailOffset:    tailOffset,
		threshold:     int64(cfg.compactionThreshold),
		logger:        cfg.logger,
		metrics:       newStoreMetrics(cfg.reg),
	}
	in.metrics.keysLive.Set(float64(index.Len()))
	in.metrics.redundantBytes.Set(float64(redundantSize))

	return &Store{in: in}, nil
}

// replay forward-scans fh from its start, rebuilding the index and
// redundant-byte count. A trailing record that fails to decode with
// io.ErrUnexpectedEOF is treated as a torn write from a prior crash: the
// file is truncated back to the end of the last fully-decoded record.
func replay(fh *os.File, logger log.Logger) (*immutable.SortedMap[string, span], int64, int64, error) {
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil, 0, 0, err
	}

	index := &immutable.SortedMap[string, span]{}
	dec := json.NewDecoder(fh)

	var redundantSize int64
	var pos int64

	for {
		start := dec.InputOffset()
		var op Op
		if err := dec.Decode(&op); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				level.Warn(logger).Log("msg", "truncating torn trailing record", "offset", start)
				if err := fh.Truncate(start); err != nil {
					return nil, 0, 0, err
				}
				pos = start
				break
			}
			return nil, 0, 0, err
		}
		end := dec.InputOffset()
		sp := span{start: start, end: end}

		switch {
		case op.IsSet():
			if old, ok := index.Get(op.Key()); ok {
				redundantSize += old.len()
			}
			index = index.Set(op.Key(), sp)
		case op.IsRm():
			if old, ok := index.Get(op.Key()); ok {
				redundantSize += old.len()
				index = index.Delete(op.Key())
			}
			redundantSize += sp.len()
		default:
			return nil, 0, 0, fmt.Errorf("decoded op with neither Set nor Rm at offset %d", start)
		}
		pos = end
	}

	return index, redundantSize, pos, nil
}

// Clone returns a handle sharing the same underlying state. Cloning is a
// pointer copy and safe to call from any goroutine.
func (s *Store) Clone() *Store {
	return &Store{in: s.in}
}

// Set binds key to value, appending a Set record to the log.
func (s *Store) Set(key, value string) error {
	const op = "kvs.Store.Set"
	in := s.in

	record := NewSetOp(key, value)
	data, err := record.Encode()
	if err != nil {
		return codecErr(op, err)
	}

	in.mu.Lock()
	start, end, writeErr := in.appendLocked(data)
	if writeErr != nil {
		in.mu.Unlock()
		return ioErr(op, writeErr)
	}
	if old, ok := in.index.Get(key); ok {
		in.redundantSize += old.len()
	}
	in.index = in.index.Set(key, span{start: start, end: end})
	in.metrics.setsTotal.Inc()
	in.metrics.bytesWritten.Add(float64(end - start))
	in.metrics.keysLive.Set(float64(in.index.Len()))
	in.metrics.redundantBytes.Set(float64(in.redundantSize))
	needsCompaction := in.redundantSize > in.threshold
	in.mu.Unlock()

	if needsCompaction {
		if err := s.compact(); err != nil {
			level.Error(in.logger).Log("msg", "compaction failed", "err", err)
			in.metrics.compactionErrors.Inc()
		}
	}
	return nil
}

// Remove deletes key. Returns a KindKeyNotFound error if key has no live
// binding; writes nothing in that case.
func (s *Store) Remove(key string) error {
	const op = "kvs.Store.Remove"
	in := s.in

	in.mu.Lock()
	old, ok := in.index.Get(key)
	if !ok {
		in.mu.Unlock()
		in.metrics.removeMissesTotal.Inc()
		return keyNotFoundErr(op, key)
	}

	record := NewRmOp(key)
	data, err := record.Encode()
	if err != nil {
		in.mu.Unlock()
		return codecErr(op, err)
	}

	start, end, writeErr := in.appendLocked(data)
	if writeErr != nil {
		in.mu.Unlock()
		return ioErr(op, writeErr)
	}

	in.redundantSize += old.len()
	in.redundantSize += end - start
	in.index = in.index.Delete(key)
	in.metrics.removesTotal.Inc()
	in.metrics.bytesWritten.Add(float64(end - start))
	in.metrics.keysLive.Set(float64(in.index.Len()))
	in.metrics.redundantBytes.Set(float64(in.redundantSize))
	needsCompaction := in.redundantSize > in.threshold
	in.mu.Unlock()

	if needsCompaction {
		if err := s.compact(); err != nil {
			level.Error(in.logger).Log("msg", "compaction failed", "err", err)
			in.metrics.compactionErrors.Inc()
		}
	}
	return nil
}

// appendLocked writes data at the end of the log and returns its span.
// Callers must hold in.mu.
func (in *storeInner) appendLocked(data []byte) (start, end int64, err error) {
	if _, err := in.fh.Seek(0, io.SeekEnd); err != nil {
		return 0, 0, err
	}
	start = in.tailOffset
	n, err := in.fh.Write(data)
	if err != nil {
		return 0, 0, err
	}
	end = start + int64(n)
	in.tailOffset = end
	return start, end, nil
}

// Get returns the value bound to key. ok is false if key has no live
// binding. The index lookup and the opening of an independent read handle
// happen under the store mutex; the seek and decode happen after it is
// released, so Get never blocks concurrent writers or compaction for the
// duration of the disk read.
func (s *Store) Get(key string) (string, bool, error) {
	const op = "kvs.Store.Get"
	in := s.in

	in.mu.Lock()
	sp, ok := in.index.Get(key)
	if !ok {
		in.mu.Unlock()
		in.metrics.getsTotal.Inc()
		return "", false, nil
	}
	reader, err := os.Open(in.path)
	in.mu.Unlock()
	if err != nil {
		return "", false, ioErr(op, err)
	}
	defer reader.Close()

	in.metrics.getsTotal.Inc()

	if _, err := reader.Seek(sp.start, io.SeekStart); err != nil {
		return "", false, ioErr(op, err)
	}

	var record Op
	if err := json.NewDecoder(io.LimitReader(reader, sp.len())).Decode(&record); err != nil {
		return "", false, codecErr(op, err)
	}
	in.metrics.bytesRead.Add(float64(sp.len()))

	if record.IsRm() {
		return "", false, internalErr(op, fmt.Errorf("index entry for %q points at a Rm record", key))
	}
	if record.Set == nil {
		return "", false, internalErr(op, fmt.Errorf("index entry for %q decoded to neither Set nor Rm", key))
	}
	return record.Set.Value, true, nil
}

// compact rewrites the log to contain exactly one Set record per live key,
// reducing redundantSize to zero. It holds the store mutex for its entire
// duration, including the final rename, so that every Get's os.Open is
// strictly ordered before or after any given compaction.
func (s *Store) compact() error {
	const op = "kvs.Store.compact"
	in := s.in

	in.mu.Lock()
	defer in.mu.Unlock()

	type liveRecord struct {
		key string
		op  Op
	}
	live := make([]liveRecord, 0, in.index.Len())

	reader, err := os.Open(in.path)
	if err != nil {
		return ioErr(op, err)
	}
	func() {
		defer reader.Close()
		it := in.index.Iterator()
		for !it.Done() {
			key, sp, _ := it.Next()
			if _, seekErr := reader.Seek(sp.start, io.SeekStart); seekErr != nil {
				err = seekErr
				return
			}
			var record Op
			if decErr := json.NewDecoder(io.LimitReader(reader, sp.len())).Decode(&record); decErr != nil {
				err = decErr
				return
			}
			live = append(live, liveRecord{key: key, op: record})
		}
	}()
	if err != nil {
		return ioErr(op, err)
	}

	tmpPath := in.path + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return ioErr(op, err)
	}

	newIndex := &immutable.SortedMap[string, span]{}
	var pos int64
	for _, rec := range live {
		data, encErr := rec.op.Encode()
		if encErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return codecErr(op, encErr)
		}
		n, writeErr := tmp.Write(data)
		if writeErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return ioErr(op, writeErr)
		}
		newIndex = newIndex.Set(rec.key, span{start: pos, end: pos + int64(n)})
		pos += int64(n)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ioErr(op, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ioErr(op, err)
	}

	if err := in.fh.Close(); err != nil {
		os.Remove(tmpPath)
		return ioErr(op, err)
	}
	if err := os.Rename(tmpPath, in.path); err != nil {
		os.Remove(tmpPath)
		return ioErr(op, err)
	}

	newFh, err := os.OpenFile(in.path, os.O_RDWR, 0o644)
	if err != nil {
		return ioErr(op, err)
	}

	in.fh = newFh
	in.index = newIndex
	in.redundantSize = 0
	in.tailOffset = pos

	in.metrics.compactionsTotal.Inc()
	in.metrics.bytesWritten.Add(float64(pos))
	in.metrics.keysLive.Set(float64(newIndex.Len()))
	in.metrics.redundantBytes.Set(0)
	level.Info(in.logger).Log("msg", "compaction complete", "live_keys", newIndex.Len(), "bytes", pos)
	return nil
}

// Close releases the underlying log file handle. It must not be called
// while other handles cloned from the same Open are still in use.
func (s *Store) Close() error {
	return s.in.fh.Close()
}

// Path returns the on-disk log file path, for tests and diagnostics.
func (s *Store) Path() string { return s.in.path }
