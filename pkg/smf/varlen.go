package smf

// MaxVarLenBytes is the longest quantity an SMF may contain (0x0FFFFFFF).
const MaxVarLenBytes = 4

// ReadVarLen decodes the variable-length quantity starting at b[off].
// Each byte contributes its low 7 bits, most significant group first; a set
// bit 7 means another byte follows. n is the number of bytes consumed and
// ok is false when b ends before the terminating byte or the quantity runs
// past MaxVarLenBytes.
func ReadVarLen(b []byte, off int) (value uint32, n int, ok bool) {
	if off < 0 {
		return 0, 0, false
	}
	for off+n < len(b) && n < MaxVarLenBytes {
		c := b[off+n]
		n++
		value = value<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return value, n, true
		}
	}
	return value, n, false
}
