// Package synth renders simple drum hits into audio buffers. The hits are
// crude but spectrally distinct enough to exercise onset detection and
// classification without shipping recordings.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/jsphweid/drumdex/model"
)

type Hit struct {
	Time       float64
	Instrument model.Label
}

const hitLength = 0.12

// Render mixes hits into a silent buffer of the given duration. The noise
// source is seeded so identical calls return identical buffers.
func Render(hits []Hit, duration float64, rate int, seed int64) model.AudioBuffer {
	samples := make([]float64, int(duration*float64(rate)))
	rng := rand.New(rand.NewSource(seed))
	for _, h := range hits {
		start := int(h.Time * float64(rate))
		n := int(hitLength * float64(rate))
		for i := 0; i < n && start+i < len(samples); i++ {
			if start+i < 0 {
				continue
			}
			t := float64(i) / float64(rate)
			samples[start+i] += voice(h.Instrument, t, rng)
		}
	}
	for i, v := range samples {
		samples[i] = math.Max(-1, math.Min(1, v))
	}
	return model.AudioBuffer{Samples: samples, SampleRate: rate}
}

func voice(instrument model.Label, t float64, rng *rand.Rand) float64 {
	switch instrument {
	case model.Kick:
		// pitch drops from 120Hz toward 50Hz, with a short beater click
		f := 50 + 70*math.Exp(-t*30)
		click := 0.3 * math.Exp(-t*800) * (rng.Float64()*2 - 1)
		return 0.9*math.Exp(-t*18)*math.Sin(2*math.Pi*f*t) + click
	case model.Snare:
		tone := math.Sin(2 * math.Pi * 190 * t)
		noise := rng.Float64()*2 - 1
		return math.Exp(-t*25) * (0.35*tone + 0.5*noise)
	case model.Hihat:
		// differentiated noise is crudely high passed
		a, b := rng.Float64()*2-1, rng.Float64()*2-1
		return 0.5 * math.Exp(-t*60) * (a - b)
	default:
		return 0.6 * math.Exp(-t*20) * math.Sin(2*math.Pi*440*t)
	}
}

// Pattern returns hits on an eighth-note grid at bpm: kick on beats 1 and 3,
// snare on 2 and 4, hihat on every offbeat.
func Pattern(bpm float64, bars int, offset float64) []Hit {
	beat := 60 / bpm
	var res []Hit
	for b := 0; b < bars*4; b++ {
		t := offset + float64(b)*beat
		if b%2 == 0 {
			res = append(res, Hit{Time: t, Instrument: model.Kick})
		} else {
			res = append(res, Hit{Time: t, Instrument: model.Snare})
		}
		res = append(res, Hit{Time: t + beat/2, Instrument: model.Hihat})
	}
	return res
}

// Roll returns count hits of one instrument, spacing seconds apart.
func Roll(instrument model.Label, count int, spacing, offset float64) []Hit {
	res := make([]Hit, count)
	for i := range res {
		res[i] = Hit{Time: offset + float64(i)*spacing, Instrument: instrument}
	}
	return res
}

// Streamer plays buf as a beep stream with both channels equal.
func Streamer(buf model.AudioBuffer) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= len(buf.Samples) {
			return 0, false
		}
		for n < len(samples) && pos < len(buf.Samples) {
			samples[n][0] = buf.Samples[pos]
			samples[n][1] = buf.Samples[pos]
			n++
			pos++
		}
		return n, true
	})
}

// WriteWAV writes buf as 16 bit stereo PCM.
func WriteWAV(path string, buf model.AudioBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	format := beep.Format{
		SampleRate:  beep.SampleRate(buf.SampleRate),
		NumChannels: 2,
		Precision:   2,
	}
	if err := wav.Encode(f, Streamer(buf), format); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
