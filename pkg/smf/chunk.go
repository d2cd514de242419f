// Package smf decodes Standard MIDI Files into per-track event lists.
//
// The decoder is tolerant: short reads and truncated events are reported
// through flags and Undefined events instead of errors, so that a damaged
// file still yields whatever could be recovered from it.
package smf

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Chunk tags understood by the loader. Any other well-formed chunk is kept
// by ReadChunks but ignored.
const (
	HeaderTag = "MThd"
	TrackTag  = "MTrk"
)

// Chunk is a tagged, length-prefixed block of an SMF file.
type Chunk struct {
	Kind      string // 4-character tag
	Size      uint32 // declared payload size
	Data      []byte // payload actually read
	Truncated bool   // set when any read came back short
}

// ReadChunk reads one chunk from r: a 4-byte tag, a 4-byte big-endian size
// and then size bytes of payload. A short read at any point does not fail;
// it sets Truncated and returns what was read.
func ReadChunk(r io.Reader) Chunk {
	var c Chunk

	var tag [4]byte
	n, _ := io.ReadFull(r, tag[:])
	c.Kind = string(tag[:n])
	if n < len(tag) {
		c.Truncated = true
		return c
	}

	var size [4]byte
	if n, _ = io.ReadFull(r, size[:]); n < len(size) {
		c.Truncated = true
		return c
	}
	c.Size = binary.BigEndian.Uint32(size[:])

	// CopyN instead of make([]byte, Size): the declared size of a garbage
	// chunk can be anything up to 4GiB.
	var buf bytes.Buffer
	read, _ := io.CopyN(&buf, r, int64(c.Size))
	c.Data = buf.Bytes()
	if read < int64(c.Size) {
		c.Truncated = true
	}
	return c
}

// ReadChunks reads chunks until the first truncated one. The truncated chunk
// and anything after it are dropped.
func ReadChunks(r io.Reader) []Chunk {
	var chunks []Chunk
	for {
		c := ReadChunk(r)
		if c.Truncated {
			return chunks
		}
		chunks = append(chunks, c)
	}
}

// FindFirst returns the first chunk tagged kind.
func FindFirst(chunks []Chunk, kind string) (Chunk, bool) {
	for _, c := range chunks {
		if c.Kind == kind {
			return c, true
		}
	}
	return Chunk{}, false
}

// FindAll returns every chunk tagged kind, in file order.
func FindAll(chunks []Chunk, kind string) []Chunk {
	var found []Chunk
	for _, c := range chunks {
		if c.Kind == kind {
			found = append(found, c)
		}
	}
	return found
}
