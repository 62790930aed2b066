package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jsphweid/drumdex/catalog"
	"github.com/jsphweid/drumdex/constants"
	"github.com/jsphweid/drumdex/file"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/pipeline"
	"github.com/jsphweid/drumdex/util"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

var (
	outDir   string
	maxFiles int
	jobs     int
)

func init() {
	transcribeCmd.Flags().StringVarP(&outDir, "out", "o", constants.GetOutDir(), "directory for MIDI files")
	transcribeCmd.Flags().IntVar(&maxFiles, "max", 0, "stop after this many files per directory (0 means all)")
	transcribeCmd.Flags().IntVar(&jobs, "jobs", 1, "files transcribed at once")
	rootCmd.AddCommand(transcribeCmd)
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file or dir>...",
	Short: "Transcribes recordings to MIDI",
	Long:  `Transcribes every audio file given, or found under the directories given, into a MIDI file in the output directory.`,
	Args:  cobra.MinimumNArgs(1),
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
		inputs, err := GatherInputs(args, maxFiles)
		if err != nil {
			return err
		}

		outcomes := Transcribe(cmd.Context(), tr, store, inputs, outDir, jobs, os.Stdout)
		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", o.Input, o.Err)
				continue
			}
			fmt.Printf("%s -> %s (%.1f BPM, %d notes, %d skipped)\n",
				o.Input, o.Output, o.Report.BPM, o.Report.Emitted, o.Report.Skipped)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
		}
		return nil
	},
}

// StoreFromEnv returns the DynamoDB catalog when an endpoint is configured.
func StoreFromEnv() (catalog.Store, error) {
	endpoint := constants.GetCatalogEndpoint()
	if endpoint == "" {
		return catalog.NopStore{}, nil
	}
	return catalog.NewDynamoStore(endpoint, constants.GetCatalogTable())
}

// GatherInputs expands directories into the audio files under them.
func GatherInputs(args []string, maxNum int) ([]string, error) {
	var res []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			res = append(res, arg)
			continue
		}
		paths, err := util.GatherPaths(arg, maxNum, util.IsAudioPath)
		if err != nil {
			return nil, err
		}
		res = append(res, paths...)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no audio files in %v", args)
	}
	return res, nil
}

type Outcome struct {
	Input  string
	Output string
	Report model.Report
	RunID  string
	Err    error
}

// Transcribe runs every input, up to jobs at a time, and records each
// success in store. One failing file does not stop the others. Outcomes are
// in input order.
func Transcribe(ctx context.Context, tr *pipeline.Transcriber, store catalog.Store, inputs []string, outDir string, jobs int, progress io.Writer) []Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs < 1 {
		jobs = 1
	}
	numbered := file.CreateFileNumMap(inputs)
	outputs := file.OutputPaths(numbered, outDir)

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(progress))
	bar := p.AddBar(int64(len(inputs)),
		mpb.PrependDecorators(
			decor.Name("Transcribing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)

	res := make([]Outcome, len(inputs))
	var g errgroup.Group
	g.SetLimit(jobs)
	for _, num := range util.GetKeys(numbered) {
		num := num
		g.Go(func() error {
			defer bar.Increment()
			o := Outcome{Input: numbered[num], Output: outputs[num]}
			result, err := tr.TranscribeFile(ctx, o.Input, o.Output)
			if err != nil {
				o.Err = err
			} else {
				o.Report = result.Report
				record := catalog.NewRecord(o.Input, o.Output, result.Report)
				o.RunID = record.PK
				if err := store.Put(ctx, record); err != nil {
					o.Err = fmt.Errorf("cataloguing run: %w", err)
				}
			}
			res[num] = o
			return nil
		})
	}
	g.Wait()
	p.Wait()
	return res
}
