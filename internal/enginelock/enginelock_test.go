package enginelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCreatesLockFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Resolve(dir, "kvs"))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Equal(t, "kvs", string(data))
}

func TestResolveAgreesWithExistingLock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Resolve(dir, "kvs"))
	require.NoError(t, Resolve(dir, "kvs"))
}

func TestResolveRejectsEngineMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Resolve(dir, "kvs"))
	err := Resolve(dir, "bolt")
	require.Error(t, err)
}
