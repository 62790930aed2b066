package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsphweid/drumdex/catalog"
	"github.com/stretchr/testify/assert"
)

func TestWatchTranscribesNewFiles(t *testing.T) {
	assert := assert.New(t)
	in := t.TempDir()
	out := t.TempDir()
	tr := testTranscriber(t)
	store := catalog.NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, in, out, 200*time.Millisecond, tr, store, quiet())
	}()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	assert.NoError(WriteGroove(filepath.Join(in, "take1.wav"), 120, 2, 0.2, 44100, 21))
	assert.NoError(os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0644))

	want := filepath.Join(out, "take1.mid")
	assert.Eventually(func() bool {
		_, err := os.Stat(want)
		return err == nil && len(store.All()) == 1
	}, 20*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(<-done)
	assert.Equal(want, store.All()[0].Output)
	_, err := os.Stat(filepath.Join(out, "notes.mid"))
	assert.ErrorIs(err, os.ErrNotExist)
}

func TestWatchMissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir(), time.Millisecond, testTranscriber(t), catalog.NopStore{}, quiet())
	assert.Error(t, err)
}
