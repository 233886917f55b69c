package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "query.sql")
	other := filepath.Join(dir, "other.sql")
	require.NoError(t, os.WriteFile(file, []byte("SELECT 1"), 0644))

	w, err := New(file, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() error {
			calls <- struct{}{}
			return nil
		}, func(err error) { t.Errorf("unexpected error: %v", err) })
	}()

	wait := func() {
		t.Helper()
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatal("callback not called")
		}
	}

	wait()
	require.NoError(t, os.WriteFile(other, []byte("SELECT 2"), 0644))
	require.NoError(t, os.WriteFile(file, []byte("SELECT 3"), 0644))
	wait()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "q.sql"), 0)
	require.Error(t, err)
}
