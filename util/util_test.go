package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfAway(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-0.5, -1},
		{-2.5, -3},
		{2.4999, 2},
		{0.49999999999999994, 0},
		{0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RoundHalfAway(c.in), "RoundHalfAway(%v)", c.in)
	}
}

func TestClamp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0, Clamp(-4, 0, 10))
	assert.Equal(10, Clamp(14, 0, 10))
	assert.Equal(7, Clamp(7, 0, 10))
	assert.Equal(0.5, Clamp(0.5, 0.0, 1.0))
}

func TestGetKeysSorted(t *testing.T) {
	m := map[string]int{"snare": 1, "hihat": 2, "kick": 3}
	assert.Equal(t, []string{"hihat", "kick", "snare"}, GetKeys(m))
}

func TestGatherPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.MP3", "notes.txt", "sub/c.flac", "sub/d.mid"} {
		path := filepath.Join(dir, name)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		assert.NoError(t, os.WriteFile(path, nil, 0644))
	}

	paths, err := GatherPaths(dir, 0, IsAudioPath)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.MP3"),
		filepath.Join(dir, "b.wav"),
		filepath.Join(dir, "sub/c.flac"),
	}, paths)

	limited, err := GatherPaths(dir, 1, IsMidiPath)
	assert.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sub/d.mid")}, limited)
}

func TestBinaryRoundTrip(t *testing.T) {
	type payload struct {
		Labels []string
		Values map[string][]float64
	}
	in := payload{Labels: []string{"kick"}, Values: map[string][]float64{"kick": {1, 2, 3}}}
	path := filepath.Join(t.TempDir(), "nested", "p.gob")

	assert.NoError(t, CreateBinary(path, in))
	out, err := ReadBinary[payload](path)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFold(t *testing.T) {
	assert := assert.New(t)
	sum := Fold([]int{1, 2, 3}, 10, func(acc int, x int) int { return acc + x })
	assert.Equal(16, sum)

	joined := Fold([]string{"a", "b"}, "", func(acc string, x string) string { return acc + x })
	assert.Equal("ab", joined)
	assert.Equal(7, Fold(nil, 7, func(acc int, x int) int { return acc + x }))
}
