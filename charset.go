package ftp

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// lookupEncoding resolves a human-friendly charset name (as used in FEAT/OPTS
// UTF8 negotiation, or passed by a caller via WithEncoding) to a
// golang.org/x/text/encoding.Encoding. Unknown names fall back to UTF-8,
// which is also what an empty name means.
func lookupEncoding(name string) encoding.Encoding {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF8", "UTF-8":
		return unicode.UTF8
	case "LATIN1", "ISO-8859-1", "ISO8859-1":
		return charmap.ISO8859_1
	case "CP437", "IBM437":
		return charmap.CodePage437
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252
	default:
		return unicode.UTF8
	}
}

// encodeCommandLine transcodes a command line from the client's internal
// UTF-8 representation to the wire charset before it is written to the
// control connection.
func encodeCommandLine(enc encoding.Encoding, line string) (string, error) {
	if enc == nil || enc == unicode.UTF8 {
		return line, nil
	}
	out, err := enc.NewEncoder().String(line)
	if err != nil {
		return "", err
	}
	return out, nil
}

// decodeResponseText transcodes response text from the wire charset to
// UTF-8. Response codes themselves are always ASCII and need no
// transcoding; this only applies to the human-readable message portion.
func decodeResponseText(enc encoding.Encoding, text string) string {
	if enc == nil || enc == unicode.UTF8 {
		return text
	}
	out, err := enc.NewDecoder().String(text)
	if err != nil {
		return text
	}
	return out
}
