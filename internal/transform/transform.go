// Package transform implements the reversible numeric transforms applied
// to mzML binary arrays before entropy compression: the value-domain
// algebra of §4.2. Every transform satisfies decode(encode(x)) == x up to
// its declared error bound.
package transform

import (
	"encoding/binary"
	"fmt"
)

// Precision identifies the source numeric width of a binary array.
type Precision int

const (
	F32 Precision = iota
	F64
)

func (p Precision) String() string {
	if p == F32 {
		return "f32"
	}
	return "f64"
}

// Width returns the byte width of a single element at this precision.
func (p Precision) Width() int {
	if p == F32 {
		return 4
	}
	return 8
}

// Algorithm identifies one of the transform kinds of §3 "Algorithm tag".
type Algorithm int

const (
	Lossless Algorithm = iota
	Log2
	Cast64To32
	Delta16
	Delta32
)

func (a Algorithm) String() string {
	switch a {
	case Lossless:
		return "lossless"
	case Log2:
		return "log2"
	case Cast64To32:
		return "cast_64_to_32"
	case Delta16:
		return "delta16"
	case Delta32:
		return "delta32"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps the textual algorithm names accepted from
// configuration (§4.6) onto an Algorithm tag.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "lossless":
		return Lossless, nil
	case "log":
		return Log2, nil
	case "cast":
		return Cast64To32, nil
	case "delta16":
		return Delta16, nil
	case "delta32":
		return Delta32, nil
	default:
		return 0, fmt.Errorf("unknown algorithm name %q", name)
	}
}

// HeaderSize is the fixed 4-byte size-offset every transformed buffer other
// than lossless begins with (the ZLIB_SIZE_OFFSET contract of §4.2/§9).
// Decoders skip it before reading an anchor, if the transform has one.
const HeaderSize = 4

// DeltaScaleFactor is the shared integer scale factor S used to quantize
// deltas into narrow integer codes (§4.2, §GLOSSARY "Scale factor S").
// Encoder and decoder must agree on this build-time constant.
const DeltaScaleFactor = 1000

// EncodeFunc transforms a raw source-precision numeric byte buffer (as
// produced by the byte-codec's decode_source) into a transformed buffer
// ready for entropy compression.
type EncodeFunc func(src []byte) ([]byte, error)

// DecodeFunc reverses an EncodeFunc, reconstructing the original
// source-precision numeric byte buffer.
type DecodeFunc func(src []byte) ([]byte, error)

// putHeader writes the 4-byte little-endian element count into the fixed
// size-offset slot.
func putHeader(count int) []byte {
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hdr, uint32(count))
	return hdr
}

// readHeader reads the element count out of the fixed size-offset slot.
// Callers skip HeaderSize bytes to reach what follows the header.
func readHeader(src []byte) (count int, err error) {
	if len(src) < HeaderSize {
		return 0, fmt.Errorf("transform: buffer too small for header: %d bytes", len(src))
	}
	return int(binary.LittleEndian.Uint32(src)), nil
}
