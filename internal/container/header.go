// Package container implements the compressed file layout of §4.7: a
// textual header, three contiguous per-stream compressed block regions
// (xml, mz, inten), the block-length tables, the per-division position
// tables, and the trailing footer that makes the file self-describing
// and random-access-friendly.
package container

import (
	"encoding/binary"
	"fmt"
)

const (
	// FormatVersionMajor and FormatVersionMinor are the format version
	// written to both the header and footer (§6).
	FormatVersionMajor = 1
	FormatVersionMinor = 0

	headerMagic   = "MSCOMPRESS"
	headerMagicSz = 10
	hashSize      = 16
	methodFieldSz = 16

	// HeaderSize is the fixed size, in bytes, of the textual preamble
	// (§4.7 item 1).
	HeaderSize = headerMagicSz + 2 + 2 + 8 + hashSize + methodFieldSz
)

// Header is the file-leading fixed-layout record of §4.7 item 1: format
// version, compression method name, original input size, and a 128-bit
// content hash of the original input bytes.
type Header struct {
	VersionMajor, VersionMinor uint16
	OriginalSize               int64
	ContentHash                [hashSize]byte
	CompressionMethod          string
}

// Encode serializes h to its fixed HeaderSize-byte representation.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, headerMagic)
	off := headerMagicSz
	binary.LittleEndian.PutUint16(buf[off:], h.VersionMajor)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], h.VersionMinor)
	off += 2
	binary.LittleEndian.PutUint64(buf[off:], uint64(h.OriginalSize))
	off += 8
	copy(buf[off:off+hashSize], h.ContentHash[:])
	off += hashSize
	copy(buf[off:off+methodFieldSz], padMethod(h.CompressionMethod))
	return buf
}

// DecodeHeader parses and validates the fixed-layout header that must be
// the first HeaderSize bytes of a compressed file.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("container: header truncated: have %d bytes, want %d", len(buf), HeaderSize)
	}
	if string(buf[:headerMagicSz]) != headerMagic {
		return Header{}, fmt.Errorf("container: bad header magic %q", buf[:headerMagicSz])
	}
	var h Header
	off := headerMagicSz
	h.VersionMajor = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	h.VersionMinor = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	if h.VersionMajor != FormatVersionMajor {
		return Header{}, fmt.Errorf("container: unsupported format major version %d", h.VersionMajor)
	}
	h.OriginalSize = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	copy(h.ContentHash[:], buf[off:off+hashSize])
	off += hashSize
	h.CompressionMethod = trimMethod(buf[off : off+methodFieldSz])
	return h, nil
}

func padMethod(s string) []byte {
	b := make([]byte, methodFieldSz)
	copy(b, s)
	return b
}

func trimMethod(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
