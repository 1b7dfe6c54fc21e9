package chatdb

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// archived builds a minimal stream: class header, '+' tag, length, payload.
func archived(length []byte, payload string) []byte {
	b := []byte("\x04\x0bstreamtyped\x81\xe8\x03\x84\x01@\x84\x84\x84\x08NSString\x01\x94\x84\x01+")
	b = append(b, length...)
	b = append(b, payload...)
	return append(b, 0x86, 0x84)
}

func TestTextFromAttributedBody(t *testing.T) {
	be.Equal(t, string(textFromAttributedBody(archived([]byte{5}, "hello"))), "hello")

	long := strings.Repeat("x", 300)
	be.Equal(t, string(textFromAttributedBody(archived([]byte{0x81, 0x2c, 0x01}, long))), long)

	be.True(t, textFromAttributedBody([]byte("no marker here")) == nil)
	// Declared length runs past the blob.
	be.True(t, textFromAttributedBody(archived([]byte{0x7f}, "short")) == nil)
	// Unknown length prefix.
	be.True(t, textFromAttributedBody(archived([]byte{0x85}, "short")) == nil)
}
