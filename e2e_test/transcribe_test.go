//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/drumdex/catalog"
	"github.com/jsphweid/drumdex/cmd"
	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/constants"
	"github.com/jsphweid/drumdex/midi"
	"github.com/stretchr/testify/assert"
)

var (
	workDir   string
	modelPath string
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "drumdex-e2e-")
	if err != nil {
		panic(err.Error())
	}
	workDir = dir

	kit := filepath.Join(dir, "kit")
	if _, err := cmd.WriteKit(kit, constants.TargetSampleRate, 1); err != nil {
		panic(err.Error())
	}
	examples, err := cmd.GatherExamples(kit, constants.TargetSampleRate)
	if err != nil {
		panic(err.Error())
	}
	modelPath = filepath.Join(dir, "kit.gob")
	if _, err := cmd.Fit(context.Background(), config.Default(), examples, 3, modelPath); err != nil {
		panic(err.Error())
	}

	exitVal := m.Run()
	os.RemoveAll(dir)
	os.Exit(exitVal)
}

func TestGrooveToMidiE2E(t *testing.T) {
	assert := assert.New(t)
	in := filepath.Join(workDir, "in", "groove.wav")
	out := filepath.Join(workDir, "out")
	assert.NoError(cmd.WriteGroove(in, 100, 4, 0.3, constants.TargetSampleRate, 7))

	tr, err := cmd.NewTranscriber(config.Default(), modelPath, log.New(&bytes.Buffer{}, "", 0))
	assert.NoError(err)
	inputs, err := cmd.GatherInputs([]string{filepath.Dir(in)}, 0)
	assert.NoError(err)
	outcomes := cmd.Transcribe(context.Background(), tr, catalog.NopStore{}, inputs, out, 1, &bytes.Buffer{})
	assert.Len(outcomes, 1)
	assert.NoError(outcomes[0].Err)

	s, err := midi.ReadMidiFile(outcomes[0].Output)
	assert.NoError(err)
	bpm, ok := midi.Tempo(s)
	assert.True(ok)
	assert.InDelta(100, bpm, 4)

	onsets := midi.NoteOnsets(s)
	assert.Len(onsets, 32)
	// kick, hihat, snare, hihat
	want := []uint8{36, 42, 38, 42}
	for i, o := range onsets {
		assert.Equal(want[i%4], o.Note, "note %d", i)
		assert.Equal(uint8(9), o.Channel)
	}

	report, err := cmd.BuildReport(out)
	assert.NoError(err)
	assert.Equal(map[uint8]int{36: 8, 38: 8, 42: 16}, report.NoteCounts)
}
