package chatdb

import (
	"bytes"
	"encoding/binary"
)

var nsStringMarker = []byte("NSString")

// Type tag that precedes the string payload in an archived NSString.
const typedStreamString = '+'

// textFromAttributedBody pulls the plain text out of an attributedBody
// column. The column holds an NSAttributedString archived in Apple's
// typedstream format; the first NSString in the stream is the message body.
// Returns nil when the blob has no recognizable string.
func textFromAttributedBody(blob []byte) []byte {
	idx := bytes.Index(blob, nsStringMarker)
	if idx < 0 {
		return nil
	}
	rest := blob[idx+len(nsStringMarker):]

	// Class version and flags sit between the class name and the '+' tag.
	tag := bytes.IndexByte(rest[:min(len(rest), 16)], typedStreamString)
	if tag < 0 {
		return nil
	}
	rest = rest[tag+1:]
	if len(rest) == 0 {
		return nil
	}

	var n, hdr int
	switch rest[0] {
	case 0x81:
		if len(rest) < 3 {
			return nil
		}
		n, hdr = int(binary.LittleEndian.Uint16(rest[1:3])), 3
	case 0x82:
		if len(rest) < 5 {
			return nil
		}
		n, hdr = int(binary.LittleEndian.Uint32(rest[1:5])), 5
	default:
		if rest[0] >= 0x80 {
			return nil
		}
		n, hdr = int(rest[0]), 1
	}
	if n < 0 || hdr+n > len(rest) {
		return nil
	}
	return rest[hdr : hdr+n]
}
