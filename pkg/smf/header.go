package smf

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidHeader is returned when the MThd chunk is missing fields or
// declares a zero division.
var ErrInvalidHeader = errors.New("invalid MThd header")

// ErrSMPTEDivision is returned for files using SMPTE time-code division.
var ErrSMPTEDivision = errors.New("SMPTE time-code division is not supported")

// File formats.
const (
	FormatSingleTrack = 0
	FormatMultiTrack  = 1
	FormatMultiSong   = 2
)

// Header holds the fields of an MThd chunk.
type Header struct {
	Format   uint16
	Tracks   uint16
	Division uint16 // ticks per quarter note
}

// ParseHeader decodes an MThd chunk.
func ParseHeader(c Chunk) (Header, error) {
	if len(c.Data) < 6 {
		return Header{}, fmt.Errorf("%w: %d bytes, want 6", ErrInvalidHeader, len(c.Data))
	}
	h := Header{
		Format:   binary.BigEndian.Uint16(c.Data[0:2]),
		Tracks:   binary.BigEndian.Uint16(c.Data[2:4]),
		Division: binary.BigEndian.Uint16(c.Data[4:6]),
	}
	if h.Division&0x8000 != 0 {
		return h, ErrSMPTEDivision
	}
	if h.Division == 0 {
		return h, fmt.Errorf("%w: zero division", ErrInvalidHeader)
	}
	return h, nil
}
