package player

import (
	"errors"

	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

// ErrInvalidStep is returned by ApplyArpeggio for a zero step.
var ErrInvalidStep = errors.New("arpeggio step must be positive")

// ApplyArpeggio rolls every chord of the playable tracks into an arpeggio
// with one note change every ticksPerStep ticks. Instruments that sound one
// note at a time can then play chords.
//
// A chord is a note on followed by note ons with a zero delta. Its members
// are cycled through in order until the next event is due. Chords of one
// note, chords the next event follows immediately, chords at the end of a
// track and chords shorter than one step are left alone.
func (s *Song) ApplyArpeggio(ticksPerStep uint32) error {
	if ticksPerStep == 0 {
		return ErrInvalidStep
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, info := range s.tracks {
		if info.DataOnly {
			continue
		}
		before := len(s.events[i])
		s.events[i] = arpeggiate(s.events[i], ticksPerStep)
		s.log.Debug("Track arpeggiated", "track", i, "events", before, "after", len(s.events[i]))
	}

	if n := len(s.events[s.active]); n > 0 && s.cursor.Index >= n {
		s.cursor = Cursor{}
	}
	return nil
}

// arpeggiate returns a new event list; events is not modified.
func arpeggiate(events []smf.Event, step uint32) []smf.Event {
	in := append([]smf.Event(nil), events...)
	out := make([]smf.Event, 0, len(in))

	for i := 0; i < len(in); {
		if !in[i].IsNoteOn() {
			out = append(out, in[i])
			i++
			continue
		}

		j := i + 1
		for j < len(in) && in[j].IsNoteOn() && in[j].Delta == 0 {
			j++
		}
		chord := in[i:j]

		if len(chord) < 2 || j == len(in) || in[j].Delta < step {
			out = append(out, chord...)
			i = j
			continue
		}

		gap := in[j].Delta
		n := gap / step
		k := uint32(len(chord))

		out = append(out, chord[0])
		for st := uint32(1); st <= n; st++ {
			out = append(out, releaseOf(chord[(st-1)%k], step))
			if st < n {
				on := chord[st%k]
				on.Delta = 0
				out = append(out, on)
			}
		}

		// The next event may itself start a chord.
		in[j].Delta = gap - n*step
		i = j
	}
	return out
}

func releaseOf(on smf.Event, delta uint32) smf.Event {
	return smf.Event{
		Kind:   smf.KindNote,
		Delta:  delta,
		Size:   on.Size,
		Status: smf.StatusNoteOff | on.Note.Channel,
		Note: smf.Note{
			Channel: on.Note.Channel,
			Key:     on.Note.Key,
		},
	}
}
