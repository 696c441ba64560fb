// Package enginelock persists the name of the storage engine a directory was
// first opened with, so a later run with a different --engine flag fails
// loudly instead of silently reading a foreign engine's files.
package enginelock

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileName is the lock file's fixed name within the working directory.
const FileName = "engine.lock"

// Resolve checks dir's engine.lock against requested. If the lock file does
// not exist, it is created (atomically) naming requested. If it exists and
// names a different engine, an error is returned and nothing is written.
func Resolve(dir, requested string) error {
	path := filepath.Join(dir, FileName)

	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("enginelock: reading %s: %w", path, err)
		}
		return persist(path, requested)
	}

	name := string(bytes.TrimSpace(existing))
	if name != requested {
		return fmt.Errorf("enginelock: %s was previously opened with engine %q, refusing to open with %q", dir, name, requested)
	}
	return nil
}

func persist(path, engine string) error {
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(engine))); err != nil {
		return fmt.Errorf("enginelock: writing %s: %w", path, err)
	}
	return nil
}
