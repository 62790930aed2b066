package cmd

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/jsphweid/drumdex/catalog"
	"github.com/jsphweid/drumdex/constants"
	"github.com/jsphweid/drumdex/file"
	"github.com/jsphweid/drumdex/pipeline"
	"github.com/jsphweid/drumdex/util"
	"github.com/spf13/cobra"
)

var (
	watchOut string
	settle   time.Duration
)

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", constants.GetOutDir(), "directory for MIDI files")
	watchCmd.Flags().DurationVar(&settle, "settle", time.Second, "quiet period before new files are transcribed")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Transcribes audio files as they appear",
	Long:  `Watches a directory and transcribes each audio file written to it once writes have settled.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		tr, err := NewTranscriber(cfg, modelPath, logger)
		if err != nil {
			return err
		}
		store, err := StoreFromEnv()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return Watch(ctx, args[0], watchOut, settle, tr, store, logger)
	},
}

// Watch blocks until ctx is done. Audio files created or written under dir
// are collected and transcribed together once no event has arrived for
// settle.
func Watch(ctx context.Context, dir, outDir string, settle time.Duration, tr *pipeline.Transcriber, store catalog.Store, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	var mu sync.Mutex
	pending := map[string]struct{}{}
	var running sync.WaitGroup
	flush := func() {
		running.Add(1)
		defer running.Done()
		mu.Lock()
		paths := util.GetKeys(pending)
		pending = map[string]struct{}{}
		mu.Unlock()

		for _, in := range paths {
			out := file.OutputPath(in, outDir)
			res, err := tr.TranscribeFile(ctx, in, out)
			if err != nil {
				logger.Printf("%s: %v", in, err)
				continue
			}
			if err := store.Put(ctx, catalog.NewRecord(in, out, res.Report)); err != nil {
				logger.Printf("could not catalogue %s: %v", in, err)
			}
			logger.Printf("%s -> %s (%d notes, %d skipped)", in, out, res.Report.Emitted, res.Report.Skipped)
		}
	}
	debounced := debounce.New(settle)

	logger.Printf("watching %s", dir)
	for {
		select {
		case <-ctx.Done():
			running.Wait()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !util.IsAudioPath(ev.Name) {
				continue
			}
			mu.Lock()
			pending[ev.Name] = struct{}{}
			mu.Unlock()
			debounced(flush)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watch error: %v", err)
		}
	}
}
