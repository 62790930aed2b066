package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/jsphweid/drumdex/model"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

var (
	ErrEmptyBuffer       = errors.New("audio buffer is empty")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// ResampleQuality is passed to beep.Resample. 4 is a good middle ground
// between speed and aliasing for offline work.
const ResampleQuality = 4

const streamChunk = 4096

// Load reads a file into a mono buffer at targetRate. WAV files are decoded
// in process, everything else goes through ffmpeg.
func Load(path string, targetRate int) (model.AudioBuffer, error) {
	if targetRate <= 0 {
		return model.AudioBuffer{}, fmt.Errorf("target sample rate must be positive, got %d", targetRate)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".wav" {
		f, err := os.Open(path)
		if err != nil {
			return model.AudioBuffer{}, fmt.Errorf("error reading audio file... %w", err)
		}
		defer f.Close()
		return Decode(f, targetRate)
	}
	return transcode(path, targetRate)
}

// Decode reads a WAV stream into a mono buffer at targetRate.
func Decode(r io.Reader, targetRate int) (model.AudioBuffer, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return model.AudioBuffer{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if int(format.SampleRate) != targetRate {
		s = beep.Resample(ResampleQuality, format.SampleRate, beep.SampleRate(targetRate), streamer)
	}

	samples, err := drain(s)
	if err != nil {
		return model.AudioBuffer{}, err
	}
	return newBuffer(samples, targetRate)
}

// drain mixes a stereo streamer down to mono.
func drain(s beep.Streamer) ([]float64, error) {
	var res []float64
	buf := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			res = append(res, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if s.Err() != nil {
		return nil, fmt.Errorf("error streaming audio... %w", s.Err())
	}
	return res, nil
}

// transcode asks ffmpeg for mono signed 16 bit PCM at targetRate.
func transcode(path string, targetRate int) (model.AudioBuffer, error) {
	if _, err := os.Stat(path); err != nil {
		return model.AudioBuffer{}, fmt.Errorf("error reading audio file... %w", err)
	}
	var out, stderr bytes.Buffer
	err := ffmpeggo.Input(path).
		Output("pipe:", ffmpeggo.KwArgs{"f": "s16le", "acodec": "pcm_s16le", "ac": 1, "ar": targetRate}).
		WithOutput(&out).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		return model.AudioBuffer{}, fmt.Errorf("%w: ffmpeg failed on %s: %v: %s", ErrUnsupportedFormat, path, err, lastLine(stderr.String()))
	}
	return newBuffer(DecodePCM16(out.Bytes()), targetRate)
}

// DecodePCM16 converts little endian signed 16 bit samples to [-1, 1).
// A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float64 {
	res := make([]float64, len(data)/2)
	for i := range res {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		res[i] = float64(v) / 32768
	}
	return res
}

func newBuffer(samples []float64, rate int) (model.AudioBuffer, error) {
	if len(samples) == 0 {
		return model.AudioBuffer{}, ErrEmptyBuffer
	}
	return model.AudioBuffer{Samples: samples, SampleRate: rate}, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
