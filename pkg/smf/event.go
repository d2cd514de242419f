package smf

import (
	"fmt"
	"strconv"
)

// Kind classifies a decoded event.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNote
	KindMeta
	KindTempo
	KindVoice
	KindSysex
	KindName
	KindInstrumentName
)

var kindNames = [...]string{
	KindUndefined:      "undefined",
	KindNote:           "note",
	KindMeta:           "meta",
	KindTempo:          "tempo",
	KindVoice:          "voice",
	KindSysex:          "sysex",
	KindName:           "name",
	KindInstrumentName: "instrument_name",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Status bytes.
const (
	StatusNoteOff     = 0x80
	StatusNoteOn      = 0x90
	StatusProgram     = 0xC0
	StatusPressure    = 0xD0
	StatusSysex       = 0xF0
	StatusSysexEscape = 0xF7
	StatusMeta        = 0xFF
)

// Meta event types.
const (
	MetaText          = 0x01
	MetaTrackName     = 0x03
	MetaInstrument    = 0x04
	MetaLyric         = 0x05
	MetaMarker        = 0x06
	MetaEndOfTrack    = 0x2F
	MetaTempo         = 0x51
	MetaTimeSignature = 0x58
	MetaKeySignature  = 0x59
)

// NoteNames is indexed by key % 12.
var NoteNames = [12]string{"C ", "C#", "D ", "Eb", "E ", "F ", "F#", "G ", "Ab", "A ", "Bb", "B "}

// Note is the payload of a KindNote event.
type Note struct {
	On       bool
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// Name returns the pitch class of the note, padded to two characters.
func (n Note) Name() string {
	return NoteNames[n.Key%12]
}

// Octave returns key / 12.
func (n Note) Octave() int {
	return int(n.Key) / 12
}

func (n Note) String() string {
	state := "off"
	if n.On {
		state = "on"
	}
	return fmt.Sprintf("{%s %d %d}", state, n.Key, n.Velocity)
}

// Meta is the payload of a generic KindMeta event.
type Meta struct {
	Type byte
	Data []byte
}

// Voice is the payload of a KindVoice event: any channel message that is not
// a note on or off.
type Voice struct {
	Status byte
	Data   []byte
}

// Hex returns the status byte in lower-case hex, without prefix.
func (v Voice) Hex() string {
	return strconv.FormatUint(uint64(v.Status), 16)
}

// Bytes returns the raw message: status followed by data bytes.
func (v Voice) Bytes() []byte {
	return append([]byte{v.Status}, v.Data...)
}

// Event is one decoded track event. Only the payload fields matching Kind
// are set.
type Event struct {
	Kind   Kind
	Delta  uint32 // ticks since the previous event of the same track
	Size   uint32 // bytes consumed, delta-time prefix included
	Status byte

	Note  Note
	Meta  Meta
	Voice Voice
	Tempo uint32 // microseconds per quarter note
	Text  string // KindName, KindInstrumentName
	Data  []byte // KindSysex payload; raw text bytes for name events
}

func (e Event) String() string {
	s := fmt.Sprintf("+%d 0x%02X %s", e.Delta, e.Status, e.Kind)
	switch e.Kind {
	case KindNote:
		s += " " + e.Note.String()
	case KindTempo:
		s += fmt.Sprintf(" %dus", e.Tempo)
	case KindName, KindInstrumentName:
		s += fmt.Sprintf(" <%s>", e.Text)
	case KindMeta:
		s += fmt.Sprintf(" 0x%02X %v", e.Meta.Type, e.Meta.Data)
	case KindVoice:
		s += fmt.Sprintf(" %v", e.Voice.Data)
	}
	return "{" + s + "}"
}

// IsNoteOn reports whether e is a note event that starts a note.
func (e Event) IsNoteOn() bool {
	return e.Kind == KindNote && e.Note.On
}

type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) peek() (byte, bool) {
	if c.pos >= len(c.b) {
		return 0, false
	}
	return c.b[c.pos], true
}

func (c *cursor) next() (byte, bool) {
	v, ok := c.peek()
	if ok {
		c.pos++
	}
	return v, ok
}

func (c *cursor) varLen() (uint32, bool) {
	v, n, ok := ReadVarLen(c.b, c.pos)
	if !ok {
		return 0, false
	}
	c.pos += n
	return v, true
}

// take copies n bytes. When fewer than n remain, the rest of the buffer is
// consumed and ok is false.
func (c *cursor) take(n uint32) ([]byte, bool) {
	if uint64(c.pos)+uint64(n) > uint64(len(c.b)) {
		c.pos = len(c.b)
		return nil, false
	}
	out := make([]byte, n)
	copy(out, c.b[c.pos:])
	c.pos += int(n)
	return out, true
}

// ReadEvent decodes the event starting at b[off]. prev is the previously
// decoded event of the same track, or nil, and is used for running status.
//
// When the event runs past the end of b the returned event has Kind
// KindUndefined and a Size covering every byte that was read.
func ReadEvent(b []byte, off int, prev *Event) Event {
	c := &cursor{b: b, pos: off}
	e := decodeEvent(c, prev)
	e.Size = uint32(c.pos - off)
	return e
}

func decodeEvent(c *cursor, prev *Event) Event {
	var e Event

	delta, ok := c.varLen()
	if !ok {
		// Keep whatever the partial quantity covered so the caller moves on.
		_, n, _ := ReadVarLen(c.b, c.pos)
		c.pos += n
		return e
	}
	e.Delta = delta

	status, ok := c.peek()
	if !ok {
		return e
	}
	if prev != nil && prev.Status&0x80 != 0 && prev.Status&0xF0 != 0xF0 && status < 0x80 {
		status = prev.Status
	} else {
		c.pos++
	}
	e.Status = status

	switch {
	case status == StatusSysex || status == StatusSysexEscape:
		n, ok := c.varLen()
		if !ok {
			return e
		}
		data, ok := c.take(n)
		if !ok {
			return e
		}
		e.Kind = KindSysex
		e.Data = data

	case status == StatusMeta:
		typ, ok := c.next()
		if !ok {
			return e
		}
		n, ok := c.varLen()
		if !ok {
			return e
		}
		data, ok := c.take(n)
		if !ok {
			return e
		}
		decodeMeta(&e, typ, data)

	default:
		count := uint32(2)
		if hi := status & 0xF0; hi == StatusProgram || hi == StatusPressure {
			count = 1
		}
		data, ok := c.take(count)
		if !ok {
			return e
		}
		decodeChannel(&e, status, data)
	}
	return e
}

func decodeMeta(e *Event, typ byte, data []byte) {
	switch {
	case typ == MetaTempo && len(data) >= 3:
		e.Kind = KindTempo
		e.Tempo = uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	case typ == MetaTrackName:
		e.Kind = KindName
		e.Data = data
		e.Text = string(data)
	case typ == MetaInstrument:
		e.Kind = KindInstrumentName
		e.Data = data
		e.Text = string(data)
	default:
		e.Kind = KindMeta
		e.Meta = Meta{Type: typ, Data: data}
	}
}

func decodeChannel(e *Event, status byte, data []byte) {
	switch status & 0xF0 {
	case StatusNoteOff, StatusNoteOn:
		e.Kind = KindNote
		e.Note = Note{
			On:       status&0xF0 == StatusNoteOn,
			Channel:  status & 0x0F,
			Key:      data[0],
			Velocity: data[1],
		}
		if e.Note.Velocity == 0 {
			e.Note.On = false
		}
	default:
		e.Kind = KindVoice
		e.Voice = Voice{Status: status, Data: data}
	}
}
