package interpreter

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// resolveEncoding maps a ksy encoding name to a golang.org/x/text codec.
// Unrecognized and empty names fall back to UTF-8, treating raw bytes as
// already-decoded text (the same behavior the original source document's
// default path expects).
func resolveEncoding(name string) encoding.Encoding {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8", "ASCII", "US-ASCII":
		return encoding.Nop
	case "UTF-16LE", "UTF16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "UTF-16BE", "UTF16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252
	default:
		return encoding.Nop
	}
}

// decodeText decodes raw bytes with the named encoding, falling back to a
// raw UTF-8 reinterpretation if the codec rejects the input outright.
func decodeText(raw []byte, name string) string {
	enc := resolveEncoding(name)
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
