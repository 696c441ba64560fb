// Package boltengine is a reference implementation of the Engine contract
// over a third-party embedded store, proving the contract is truly
// pluggable and not coupled to the log-structured engine's internals.
package boltengine

import (
	"errors"
	"path/filepath"

	kvs "github.com/0xcrust/log-kv"
	bolt "go.etcd.io/bbolt"
)

// errKeyNotFound signals a missing key from inside a bbolt transaction
// closure; it never escapes this package.
var errKeyNotFound = errors.New("boltengine: key not found")

// BucketName is the single bbolt bucket all keys live in.
const BucketName = "kvs"

// FileName is the fixed relative path of the database file within an
// Engine's root directory.
const FileName = "kvs.bolt"

// Engine is a thin wrapper around a bbolt database, satisfying
// kvs.CloneableEngine[*Engine]. Unlike the log-structured Store it performs
// no compaction: bbolt manages its own on-disk page layout and free list.
type Engine struct {
	db *bolt.DB
}

var (
	_ kvs.Engine                   = (*Engine)(nil)
	_ kvs.CloneableEngine[*Engine] = (*Engine)(nil)
)

// Open opens (creating if necessary) a bbolt-backed engine rooted at dir.
func Open(dir string) (*Engine, error) {
	const op = "boltengine.Open"

	path := filepath.Join(dir, FileName)
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, kvs.NewIOError(op, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, kvs.NewIOError(op, err)
	}

	return &Engine{db: db}, nil
}

// Clone returns a handle sharing the same underlying *bolt.DB. bbolt's *DB
// is already safe for concurrent use by multiple goroutines, so Clone is
// just a pointer copy, matching the contract every CloneableEngine must
// satisfy.
func (e *Engine) Clone() *Engine {
	return &Engine{db: e.db}
}

// Set binds key to value.
func (e *Engine) Set(key, value string) error {
	const op = "boltengine.Engine.Set"
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return kvs.NewIOError(op, err)
	}
	return nil
}

// Get returns the value bound to key, or ok == false if absent.
func (e *Engine) Get(key string) (value string, ok bool, err error) {
	const op = "boltengine.Engine.Get"
	txErr := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketName)).Get([]byte(key))
		if v == nil {
			return nil
		}
		ok = true
		value = string(v)
		return nil
	})
	if txErr != nil {
		return "", false, kvs.NewIOError(op, txErr)
	}
	return value, ok, nil
}

// Remove deletes key, returning a KindKeyNotFound error if it has no live
// binding.
func (e *Engine) Remove(key string) error {
	const op = "boltengine.Engine.Remove"
	err := e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b.Get([]byte(key)) == nil {
			return errKeyNotFound
		}
		return b.Delete([]byte(key))
	})
	if errors.Is(err, errKeyNotFound) {
		return kvs.NewKeyNotFoundError(op, key)
	}
	if err != nil {
		return kvs.NewIOError(op, err)
	}
	return nil
}

// Close releases the underlying database file.
func (e *Engine) Close() error {
	return e.db.Close()
}
