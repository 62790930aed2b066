// Package midi serializes event streams as standard MIDI files and reads
// them back for inspection.
package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return &smf.SMF{}, fmt.Errorf("reading midi file: %w", err)
	}
	s, err := Decode(dat)
	if err != nil {
		return s, fmt.Errorf("%s: %w", filepath, err)
	}
	return s, nil
}

func Decode(dat []byte) (s *smf.SMF, e error) {
	var blank smf.SMF

	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = &blank
			e = fmt.Errorf("parsing midi data: %v", r)
		}
	}()

	if len(dat) == 0 {
		return &blank, errors.New("empty midi data")
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return &blank, fmt.Errorf("parsing midi data: %w", err)
	}
	return res, nil
}
