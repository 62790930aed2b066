package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jsphweid/drumdex/audio"
	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/pipeline"
	"github.com/jsphweid/drumdex/util"
	"github.com/spf13/cobra"
)

var slack float64

func init() {
	fitCmd.Flags().Float64Var(&slack, "slack", 2, "multiplier on each instrument's acceptance radius")
	rootCmd.AddCommand(fitCmd)
}

var fitCmd = &cobra.Command{
	Use:   "fit <dir>",
	Short: "Builds a classifier model from labelled recordings",
	Long: `Builds the classifier model from a directory with one subdirectory per
instrument (kick, snare, hihat, ...). Every onset in a recording is taken to be
the instrument its directory is named after. The model is written to --model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		examples, err := GatherExamples(args[0], cfg.TargetSampleRate)
		if err != nil {
			return err
		}
		n, err := Fit(cmd.Context(), cfg, examples, slack, modelPath)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d instruments from %d recordings)\n", modelPath, n, len(examples))
		return nil
	},
}

// GatherExamples loads every audio file under each subdirectory of root,
// labelled with the subdirectory name.
func GatherExamples(root string, rate int) ([]pipeline.Example, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var res []pipeline.Example
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		label := model.Label(e.Name())
		if label == model.Unknown {
			continue
		}
		paths, err := util.GatherPaths(filepath.Join(root, e.Name()), 0, util.IsAudioPath)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			buf, err := audio.Load(p, rate)
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", p, err)
			}
			res = append(res, pipeline.Example{Name: p, Buffer: buf, Label: label})
		}
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no labelled recordings under %s", root)
	}
	return res, nil
}

// Fit builds a model from examples, saves it to path and returns the number
// of instruments it knows.
func Fit(ctx context.Context, cfg config.Config, examples []pipeline.Example, slack float64, path string) (int, error) {
	m, err := pipeline.FitModel(ctx, cfg, examples, slack)
	if err != nil {
		return 0, err
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return 0, err
	}
	if err := m.SaveModel(path); err != nil {
		return 0, err
	}
	return len(m.Labels), nil
}
