package midi

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/util"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const TrackName = "drums"

// ToSMF lays stream out as a single track: name, tempo, then the note events
// with their deltas, closed by end of track.
func ToSMF(stream model.EventStream) (*smf.SMF, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(stream.Resolution)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(TrackName))
	tr.Add(0, smf.MetaTempo(stream.BPM))
	for i, e := range stream.Events {
		switch e.Kind {
		case model.NoteOn:
			tr.Add(e.Delta, midi.NoteOn(e.Channel, e.Note, e.Velocity))
		case model.NoteOff:
			tr.Add(e.Delta, midi.NoteOff(e.Channel, e.Note))
		default:
			return nil, fmt.Errorf("event %d has unknown kind %v", i, e.Kind)
		}
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("adding track: %w", err)
	}
	return s, nil
}

func Encode(stream model.EventStream, w io.Writer) error {
	s, err := ToSMF(stream)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi: %w", err)
	}
	return nil
}

func EncodeBytes(stream model.EventStream) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(stream, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMidiFile writes through a temporary file in the same directory and
// renames it into place, so path never holds a partial file.
func WriteMidiFile(stream model.EventStream, path string) error {
	dir := filepath.Dir(path)
	if err := util.EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".drumdex-*.mid")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(stream, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving midi into place: %w", err)
	}
	return nil
}
