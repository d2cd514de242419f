package player

import (
	"encoding/binary"
	"io"
	"log/slog"
	"sync"

	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appendVarLen(b []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
	}
	return append(b, tmp[i:]...)
}

// smfFile assembles a file from a header and raw track payloads.
func smfFile(format, division uint16, tracks ...[]byte) []byte {
	b := []byte(smf.HeaderTag)
	b = binary.BigEndian.AppendUint32(b, 6)
	b = binary.BigEndian.AppendUint16(b, format)
	b = binary.BigEndian.AppendUint16(b, uint16(len(tracks)))
	b = binary.BigEndian.AppendUint16(b, division)
	for _, tr := range tracks {
		b = append(b, smf.TrackTag...)
		b = binary.BigEndian.AppendUint32(b, uint32(len(tr)))
		b = append(b, tr...)
	}
	return b
}

func rawTempo(delta, us uint32) []byte {
	return append(appendVarLen(nil, delta), 0xFF, 0x51, 0x03, byte(us>>16), byte(us>>8), byte(us))
}

func rawNote(delta uint32, status, key, vel byte) []byte {
	return append(appendVarLen(nil, delta), status, key, vel)
}

func rawName(delta uint32, typ byte, text string) []byte {
	b := append(appendVarLen(nil, delta), 0xFF, typ, byte(len(text)))
	return append(b, text...)
}

var rawEndOfTrack = []byte{0x00, 0xFF, 0x2F, 0x00}

func concat(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

func noteOn(delta uint32, key, vel uint8) smf.Event {
	return smf.Event{
		Kind:   smf.KindNote,
		Delta:  delta,
		Size:   4,
		Status: smf.StatusNoteOn,
		Note:   smf.Note{On: true, Key: key, Velocity: vel},
	}
}

func noteOff(delta uint32, key uint8) smf.Event {
	return smf.Event{
		Kind:   smf.KindNote,
		Delta:  delta,
		Size:   4,
		Status: smf.StatusNoteOff,
		Note:   smf.Note{Key: key},
	}
}

func tempoEvent(delta, us uint32) smf.Event {
	return smf.Event{Kind: smf.KindTempo, Delta: delta, Size: 7, Status: smf.StatusMeta, Tempo: us}
}

// songWith builds a song directly from event lists.
func songWith(ppq, bpm float64, tracks ...[]smf.Event) *Song {
	s := newSong(WithLogger(quietLogger()))
	s.ppq = ppq
	s.setBPM(bpm)
	s.baseMsPerTick = s.msPerTick
	for _, events := range tracks {
		info := smf.NewTrackInfo()
		for _, e := range events {
			if e.Kind == smf.KindNote {
				info.DataOnly = false
			}
		}
		s.tracks = append(s.tracks, info)
		s.events = append(s.events, events)
	}
	return s
}

type recorder struct {
	mu     sync.Mutex
	notes  []smf.Note
	metas  []smf.Meta
	voices []smf.Voice
}

func (r *recorder) OnNote(n smf.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) OnMeta(m smf.Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metas = append(r.metas, m)
}

func (r *recorder) OnVoice(v smf.Voice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voices = append(r.voices, v)
}

func (r *recorder) Notes() []smf.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]smf.Note(nil), r.notes...)
}
