// Package textutil provides text repair and display helpers for message bodies.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// minDetectLen is the shortest input handed to charset detection. Chat
// messages are often a few bytes long and detection below this is noise.
const minDetectLen = 20

// EnsureUTF8 returns data as a valid UTF-8 string.
// Valid UTF-8 is returned unchanged. Otherwise the charset is detected when
// the sample is long enough, then Windows-1252 (a superset of Latin-1) is
// tried, and as a last resort invalid bytes are replaced.
func EnsureUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	if len(data) >= minDetectLen {
		detector := chardet.NewTextDetector()
		result, err := detector.DetectBest(data)
		if err == nil && result.Confidence >= 50 {
			if enc := encodingByName(result.Charset); enc != nil {
				decoded, err := enc.NewDecoder().Bytes(data)
				if err == nil && utf8.Valid(decoded) {
					return string(decoded)
				}
			}
		}
	}

	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
		return string(decoded)
	}

	return SanitizeUTF8(string(data))
}

// SanitizeUTF8 replaces invalid UTF-8 bytes with the replacement character.
func SanitizeUTF8(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
			i++
			continue
		}
		sb.WriteRune(r)
		i += size
	}
	return sb.String()
}

// encodingByName maps a chardet charset name to a decoder.
func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(name) {
	case "windows-1252":
		return charmap.Windows1252
	case "iso-8859-1":
		return charmap.ISO8859_1
	case "iso-8859-2":
		return charmap.ISO8859_2
	case "iso-8859-5":
		return charmap.ISO8859_5
	case "koi8-r":
		return charmap.KOI8R
	case "shift_jis":
		return japanese.ShiftJIS
	case "euc-jp":
		return japanese.EUCJP
	case "euc-kr":
		return korean.EUCKR
	case "gb-18030", "gb18030":
		return simplifiedchinese.GB18030
	case "big5":
		return traditionalchinese.Big5
	default:
		return nil
	}
}

// Truncate shortens s to at most width terminal cells, adding "..." when cut.
// Full-width characters and emoji count as two cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// OneLine collapses line breaks and tabs so a message fits a table row.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
