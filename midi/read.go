package midi

import (
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type NoteOnset struct {
	Seconds  float64
	Ticks    int64
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// NoteOnsets lists every sounding note-on across all tracks in time order.
// Note-ons with velocity 0 are note-offs and are left out.
func NoteOnsets(s *smf.SMF) []NoteOnset {
	res := []NoteOnset{}
	for _, track := range s.Tracks {
		var absTicks int64
		for _, event := range track {
			absTicks += int64(event.Delta)
			var channel, key, velocity uint8
			if event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0 {
				res = append(res, NoteOnset{
					Seconds:  float64(s.TimeAt(absTicks)) / 1e6,
					Ticks:    absTicks,
					Channel:  channel,
					Note:     key,
					Velocity: velocity,
				})
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Ticks < res[j].Ticks
	})
	return res
}

// Tempo returns the first tempo meta event, if any.
func Tempo(s *smf.SMF) (float64, bool) {
	for _, track := range s.Tracks {
		for _, event := range track {
			var bpm float64
			if event.Message.GetMetaTempo(&bpm) {
				return bpm, true
			}
		}
	}
	return 0, false
}

// NoteCounts tallies sounding note-ons by note number.
func NoteCounts(s *smf.SMF) map[uint8]int {
	res := map[uint8]int{}
	for _, n := range NoteOnsets(s) {
		res[n.Note]++
	}
	return res
}

// Excerpt copies the non-note events of every track and the first maxNotes
// note messages at or after fromTicks. The first kept note is placed at its
// distance from fromTicks.
func Excerpt(mf *smf.SMF, fromTicks uint64, maxNotes int) *smf.SMF {
	var res smf.SMF
	res.TimeFormat = mf.TimeFormat

	for _, track := range mf.Tracks {
		var newTrack smf.Track
		var absTicks, lastKept uint64
		var numNoteOnOff int
	TrackEventLoop:
		for _, evt := range track {
			absTicks += uint64(evt.Delta)
			switch {
			case evt.Message.Is(midi.NoteOnMsg),
				evt.Message.Is(midi.NoteOffMsg):
				if absTicks < fromTicks {
					continue
				}
				if numNoteOnOff >= maxNotes {
					break TrackEventLoop
				}
				if lastKept < fromTicks {
					lastKept = fromTicks
				}
				evt.Delta = uint32(absTicks - lastKept)
				lastKept = absTicks
				newTrack = append(newTrack, evt)
				numNoteOnOff++
			case isEndOfTrack(evt.Message):
			default:
				if absTicks >= fromTicks {
					evt.Delta = uint32(absTicks - max(lastKept, fromTicks))
					lastKept = absTicks
				} else {
					evt.Delta = 0
				}
				newTrack = append(newTrack, evt)
			}
		}
		newTrack.Close(0)
		res.Tracks = append(res.Tracks, newTrack)
	}
	return &res
}

func isEndOfTrack(m smf.Message) bool {
	return len(m) >= 2 && m[0] == 0xFF && m[1] == 0x2F
}
