package smf

import "encoding/binary"

// appendVarLen is the encoder counterpart of ReadVarLen.
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

func appendChunk(b []byte, tag string, data []byte) []byte {
	b = append(b, tag...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}

func headerData(format, tracks, division uint16) []byte {
	var b []byte
	b = binary.BigEndian.AppendUint16(b, format)
	b = binary.BigEndian.AppendUint16(b, tracks)
	return binary.BigEndian.AppendUint16(b, division)
}
