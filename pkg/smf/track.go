package smf

import "golang.org/x/text/encoding"

// DefaultInstrument is the instrument of a track without an instrument-name
// meta event.
const DefaultInstrument = "Any Instrument"

// TrackInfo describes a track for selection purposes.
type TrackInfo struct {
	Name       string
	Instrument string
	// DataOnly stays true until a note event is seen. Tempo maps and other
	// meta-only tracks are never offered for playback.
	DataOnly bool
}

// NewTrackInfo returns the description of a track before any of its events
// have been read.
func NewTrackInfo() TrackInfo {
	return TrackInfo{Instrument: DefaultInstrument, DataOnly: true}
}

// ParseTrack decodes the payload of one MTrk chunk, updating info from the
// name, instrument and note events it meets. Text is decoded with enc (nil
// keeps the bytes as they are). Decoding stops at the end of data or after
// the first truncated event, which is kept in the result.
func ParseTrack(data []byte, info *TrackInfo, enc encoding.Encoding) []Event {
	var events []Event
	var prev *Event
	for off := 0; off < len(data); {
		e := ReadEvent(data, off, prev)
		off += int(e.Size)

		switch e.Kind {
		case KindName, KindInstrumentName:
			e.Text = DecodeText(enc, e.Data)
		}
		events = append(events, e)
		last := e
		prev = &last

		switch e.Kind {
		case KindName:
			if info.Name != "" {
				info.Name += " - "
			}
			info.Name += e.Text
		case KindInstrumentName:
			info.Instrument = e.Text
		case KindNote:
			info.DataOnly = false
		case KindUndefined:
			return events
		}
	}
	return events
}
