package container

import (
	"encoding/binary"
	"fmt"

	"github.com/chrisagrams/mscompress/internal/transform"
	"github.com/chrisagrams/mscompress/internal/xmlscan"
)

// FooterMagic is the trailing sentinel a reader seeks to from EOF before
// trusting anything else in the file (§4.7 item 5).
const FooterMagic uint32 = 0x035F51B5

const messageFieldSz = 64
const formatFieldSz = 6 // mz precision, inten precision, compression, mz algorithm, inten algorithm, pad

// Message is the human-readable identification string carried in every
// footer.
const Message = "MS Compress Format 1.0"

// FooterSize is the fixed size, in bytes, of the trailing footer record.
const FooterSize = 2 + 2 + 8*4 + formatFieldSz + 4 + 4 + messageFieldSz + 4

// Footer is the fixed-layout trailer of §4.7 item 5: offsets into the
// block and position-table regions, the serialized DataFormat (including
// the algorithm tag each array role was compressed with, so a reader
// never needs out-of-band configuration to decompress), the division
// count, and a magic sentinel so a reader can locate it by seeking from
// EOF.
type Footer struct {
	VersionMajor, VersionMinor uint16

	XMLBlockOffset      int64
	MzBlockOffset       int64
	IntenBlockOffset    int64
	PositionTableOffset int64

	Format         xmlscan.Format
	MzAlgorithm    transform.Algorithm
	IntenAlgorithm transform.Algorithm
	DivisionCount  int32
}

// Encode serializes f to its fixed FooterSize-byte representation, ending
// with FooterMagic so Reader can locate it unambiguously from EOF.
func (f Footer) Encode() []byte {
	buf := make([]byte, FooterSize)
	off := 0
	binary.LittleEndian.PutUint16(buf[off:], f.VersionMajor)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], f.VersionMinor)
	off += 2
	binary.LittleEndian.PutUint64(buf[off:], uint64(f.XMLBlockOffset))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(f.MzBlockOffset))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(f.IntenBlockOffset))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(f.PositionTableOffset))
	off += 8
	buf[off] = byte(f.Format.MzPrecision)
	buf[off+1] = byte(f.Format.IntenPrecision)
	buf[off+2] = byte(f.Format.Compression)
	buf[off+3] = byte(f.MzAlgorithm)
	buf[off+4] = byte(f.IntenAlgorithm)
	off += formatFieldSz
	binary.LittleEndian.PutUint32(buf[off:], uint32(f.Format.TotalSpec))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(f.DivisionCount))
	off += 4
	copy(buf[off:off+messageFieldSz], padMessage(Message))
	off += messageFieldSz
	binary.LittleEndian.PutUint32(buf[off:], FooterMagic)
	return buf
}

// DecodeFooter parses and validates a FooterSize-byte trailer.
func DecodeFooter(buf []byte) (Footer, error) {
	if len(buf) != FooterSize {
		return Footer{}, fmt.Errorf("container: footer wrong size: have %d, want %d", len(buf), FooterSize)
	}
	magic := binary.LittleEndian.Uint32(buf[FooterSize-4:])
	if magic != FooterMagic {
		return Footer{}, fmt.Errorf("container: bad footer magic 0x%08X", magic)
	}
	var f Footer
	off := 0
	f.VersionMajor = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	f.VersionMinor = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	if f.VersionMajor != FormatVersionMajor {
		return Footer{}, fmt.Errorf("container: unsupported format major version %d", f.VersionMajor)
	}
	f.XMLBlockOffset = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	f.MzBlockOffset = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	f.IntenBlockOffset = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	f.PositionTableOffset = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	f.Format.MzPrecision = intToPrecision(buf[off])
	f.Format.IntenPrecision = intToPrecision(buf[off+1])
	f.Format.Compression = xmlscan.Compression(buf[off+2])
	f.MzAlgorithm = transform.Algorithm(buf[off+3])
	f.IntenAlgorithm = transform.Algorithm(buf[off+4])
	off += formatFieldSz
	f.Format.TotalSpec = int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	f.DivisionCount = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	return f, nil
}

func padMessage(s string) []byte {
	b := make([]byte, messageFieldSz)
	copy(b, s)
	return b
}

func intToPrecision(b byte) transform.Precision {
	return transform.Precision(b)
}
