package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jsphweid/drumdex/midi"
	"github.com/jsphweid/drumdex/sequencer"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

var (
	fromTicks uint64
	atSeconds float64
	maxNotes  int
)

func init() {
	inspectCmd.Flags().Uint64Var(&fromTicks, "from", 0, "first tick to show")
	inspectCmd.Flags().Float64Var(&atSeconds, "at", 0, "first second to show, overrides --from")
	inspectCmd.Flags().IntVar(&maxNotes, "max", 20, "note messages to show")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Prints the notes of a MIDI file",
	Long:  `Prints the tempo and an excerpt of the note events of a MIDI file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		from := fromTicks
		if atSeconds > 0 {
			if from, err = StartTick(s, atSeconds); err != nil {
				return err
			}
		}
		Inspect(os.Stdout, s, from, maxNotes)
		return nil
	},
}

// StartTick converts seconds to ticks at the file's first tempo.
func StartTick(s *smf.SMF, seconds float64) (uint64, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return 0, fmt.Errorf("time format %v has no ticks per beat", s.TimeFormat)
	}
	bpm, ok := midi.Tempo(s)
	if !ok {
		bpm = 120
	}
	return uint64(sequencer.SecondsToTicks(seconds, bpm, mt.Resolution())), nil
}

func Inspect(w io.Writer, s *smf.SMF, from uint64, limit int) {
	if bpm, ok := midi.Tempo(s); ok {
		fmt.Fprintf(w, "tempo: %.2f BPM\n", bpm)
	}
	fmt.Fprintf(w, "time format: %v\n", s.TimeFormat)
	ex := midi.Excerpt(s, from, limit)
	for i, track := range ex.Tracks {
		fmt.Fprintf(w, "track %d:\n", i)
		for _, evt := range track {
			fmt.Fprintf(w, "  +%-6d %s\n", evt.Delta, evt.Message)
		}
	}
}
