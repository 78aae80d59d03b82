package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRescansOnChange(t *testing.T) {
	s := newTestStore(t)
	f := newFixture(t)
	ix := newTestIndexer(t, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scans := make(chan *Summary, 16)
	done := make(chan error, 1)
	go func() {
		done <- ix.Watch(ctx, WatchOptions{
			Root:     f.root,
			Debounce: 50 * time.Millisecond,
			OnScan: func(sum *Summary, err error) {
				if err == nil {
					scans <- sum
				}
			},
		})
	}()

	select {
	case sum := <-scans:
		assert.Equal(t, 2, sum.New)
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan did not run")
	}

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(filepath.Dir(f.memory), "auth.md"), "# Auth\n\nsessions last 12h\n")

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case sum := <-scans:
			found = sum.New == 1
		case <-deadline:
			t.Fatal("no rescan picked up the new file")
		}
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	n, err := s.CountIndexedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
