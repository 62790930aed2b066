package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/synth"
	"github.com/jsphweid/drumdex/util"
	"github.com/spf13/cobra"
)

var (
	synthBPM    float64
	synthBars   int
	synthSeed   int64
	synthOffset float64
	synthRate   int
	kitDir      string
)

const (
	kitHits    = 8
	kitSpacing = 0.4
)

func init() {
	synthCmd.Flags().Float64Var(&synthBPM, "bpm", 120, "tempo of the groove")
	synthCmd.Flags().IntVar(&synthBars, "bars", 4, "bars of 4/4")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", 1, "noise seed")
	synthCmd.Flags().Float64Var(&synthOffset, "offset", 0.2, "seconds of silence before the first hit")
	synthCmd.Flags().IntVar(&synthRate, "rate", 44100, "sample rate")
	synthCmd.Flags().StringVar(&kitDir, "kit", "", "also write single-instrument rolls under this directory, laid out for fit")
	rootCmd.AddCommand(synthCmd)
}

var synthCmd = &cobra.Command{
	Use:   "synth <out.wav>",
	Short: "Renders a synthetic drum groove",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := WriteGroove(args[0], synthBPM, synthBars, synthOffset, synthRate, synthSeed); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		if kitDir == "" {
			return nil
		}
		paths, err := WriteKit(kitDir, synthRate, synthSeed)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("Wrote %s\n", p)
		}
		return nil
	},
}

// WriteGroove renders the standard rock pattern with a bar of tail.
func WriteGroove(path string, bpm float64, bars int, offset float64, rate int, seed int64) error {
	if bpm <= 0 || bars <= 0 {
		return fmt.Errorf("bpm and bars must be positive")
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	hits := synth.Pattern(bpm, bars, offset)
	duration := offset + float64(bars*4)*60/bpm + 0.5
	return synth.WriteWAV(path, synth.Render(hits, duration, rate, seed))
}

// WriteKit writes dir/<instrument>/roll.wav for every instrument the default
// kit knows.
func WriteKit(dir string, rate int, seed int64) ([]string, error) {
	var res []string
	for _, label := range []model.Label{model.Kick, model.Snare, model.Hihat} {
		sub := filepath.Join(dir, string(label))
		if err := util.EnsureDir(sub); err != nil {
			return nil, err
		}
		path := filepath.Join(sub, "roll.wav")
		hits := synth.Roll(label, kitHits, kitSpacing, 0.2)
		duration := 0.2 + kitHits*kitSpacing + 0.2
		if err := synth.WriteWAV(path, synth.Render(hits, duration, rate, seed)); err != nil {
			return nil, err
		}
		res = append(res, path)
	}
	return res, nil
}
