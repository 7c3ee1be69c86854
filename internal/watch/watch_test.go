package watch

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path   string
		ignore bool
	}{
		{"samples/code/build.gradle", false},
		{"samples/README.adoc", false},
		{"samples/.build.gradle.swp", true},
		{"samples/build.gradle.swp", true},
		{"samples/build.gradle~", true},
		{"samples/#build.gradle#", true},
		{"samples/.DS_Store", true},
		{"samples/Thumbs.db", true},
		{"samples/4913", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ignore, shouldIgnoreEvent(tt.path), tt.path)
	}
}

func TestRunRerunsAfterChange(t *testing.T) {
	root := t.TempDir()
	runs := make(chan struct{}, 16)
	var count atomic.Int32
	w := New(root, func(context.Context) error {
		n := count.Add(1)
		runs <- struct{}{}
		if n == 1 {
			return stderrors.New("first run fails")
		}
		return nil
	}).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitRun(t, runs)

	sub := filepath.Join(root, "code")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitRun(t, runs)

	// Files in directories created after startup are watched too.
	require.NoError(t, os.WriteFile(filepath.Join(sub, "build.gradle"), []byte("x"), 0o644))
	waitRun(t, runs)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.GreaterOrEqual(t, count.Load(), int32(3))
}

func TestRunMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(context.Context) error { return nil })
	err := w.Run(context.Background())
	require.Error(t, err)
}

func waitRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run")
	}
}
