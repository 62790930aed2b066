package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jsphweid/drumdex/constants"
	"github.com/jsphweid/drumdex/midi"
	"github.com/jsphweid/drumdex/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [dir]",
	Short: "Summarizes transcribed MIDI files",
	Long:  `Counts the notes of every MIDI file in a directory, the output directory by default.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := constants.GetOutDir()
		if len(args) == 1 {
			dir = args[0]
		}
		r, err := BuildReport(dir)
		if err != nil {
			return err
		}
		r.Print(os.Stdout)
		return nil
	},
}

type FileSummary struct {
	Path  string
	BPM   float64
	Notes int
}

type NotesReport struct {
	Files      []FileSummary
	NoteCounts map[uint8]int
	Unreadable []string
}

func BuildReport(dir string) (NotesReport, error) {
	report := NotesReport{NoteCounts: map[uint8]int{}}
	paths, err := util.GatherPaths(dir, 0, util.IsMidiPath)
	if err != nil {
		return report, err
	}
	for _, path := range paths {
		s, err := midi.ReadMidiFile(path)
		if err != nil {
			report.Unreadable = append(report.Unreadable, path)
			continue
		}
		summary := FileSummary{Path: path}
		summary.BPM, _ = midi.Tempo(s)
		for note, n := range midi.NoteCounts(s) {
			report.NoteCounts[note] += n
			summary.Notes += n
		}
		report.Files = append(report.Files, summary)
	}
	return report, nil
}

func (r NotesReport) Print(w io.Writer) {
	fmt.Fprintf(w, "files: %d\n", len(r.Files))
	for _, f := range r.Files {
		fmt.Fprintf(w, "  %s: %d notes at %.1f BPM\n", f.Path, f.Notes, f.BPM)
	}
	fmt.Fprintln(w, "notes:")
	for _, note := range util.GetKeys(r.NoteCounts) {
		fmt.Fprintf(w, "  %3d: %d\n", note, r.NoteCounts[note])
	}
	for _, path := range r.Unreadable {
		fmt.Fprintf(w, "unreadable: %s\n", path)
	}
}
