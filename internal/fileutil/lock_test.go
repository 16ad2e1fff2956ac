package fileutil

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_ExclusiveBlocksSecondHolder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "database.txt.lock")

	first, err := Lock(path, true)
	require.NoError(t, err)

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		second, lockErr := Lock(path, true)
		if lockErr != nil {
			return
		}
		acquired.Store(true)
		_ = second.Unlock()
	}()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, acquired.Load(), "second exclusive lock must wait")

	require.NoError(t, first.Unlock())
	<-done
	assert.True(t, acquired.Load())
}

func TestLock_SharedHoldersCoexist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "database.txt.lock")

	a, err := Lock(path, false)
	require.NoError(t, err)
	b, err := Lock(path, false)
	require.NoError(t, err)

	require.NoError(t, a.Unlock())
	require.NoError(t, b.Unlock())
}

func TestLock_UnlockNil(t *testing.T) {
	t.Parallel()

	var l *FileLock
	require.NoError(t, l.Unlock())

	_, err := Lock("", true)
	require.ErrorIs(t, err, ErrEmptyPath)
}
