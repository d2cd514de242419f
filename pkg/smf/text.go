package smf

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
)

// CharsetRaw keeps text meta events byte-for-byte.
const CharsetRaw = "raw"

// LookupCharset resolves a charset name for text meta events. Besides
// CharsetRaw it accepts any WHATWG encoding label ("latin1", "shift_jis",
// "windows-1252", ...) and the short alias "sjis".
func LookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CharsetRaw:
		return encoding.Nop, nil
	case "sjis":
		return japanese.ShiftJIS, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}

// DecodeText converts raw meta text to UTF-8 with enc. Undecodable input is
// returned unchanged. Trailing NULs, which some sequencers pad with, are
// removed.
func DecodeText(enc encoding.Encoding, b []byte) string {
	if enc == nil {
		enc = encoding.Nop
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		out = b
	}
	return strings.TrimRight(string(out), "\x00")
}
