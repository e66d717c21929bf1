package transform

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Delta16Encode returns the forward delta transform with 16-bit codes for
// the given source precision (§4.2 "delta16 × f32/f64"). The header
// records the element count, the first element is stored verbatim as the
// anchor, and every subsequent element is stored as a quantized delta from
// its predecessor.
func Delta16Encode(p Precision) EncodeFunc {
	return deltaEncode(p, 2)
}

// Delta16Decode returns the inverse of Delta16Encode.
func Delta16Decode(p Precision) DecodeFunc {
	return deltaDecode(p, 2)
}

// Delta32Encode returns the forward delta transform with 32-bit codes.
// Per §3/§4.2, (delta32, f64) is rejected at configuration time; only f32
// is a supported source precision here.
func Delta32Encode(p Precision) EncodeFunc {
	return deltaEncode(p, 4)
}

// Delta32Decode returns the inverse of Delta32Encode.
func Delta32Decode(p Precision) DecodeFunc {
	return deltaDecode(p, 4)
}

func deltaEncode(p Precision, codeWidth int) EncodeFunc {
	width := p.Width()
	return func(src []byte) ([]byte, error) {
		if len(src)%width != 0 {
			return nil, fmt.Errorf("transform: delta source length %d is not a multiple of %d", len(src), width)
		}
		count := len(src) / width
		out := make([]byte, HeaderSize+width+max0(count-1)*codeWidth)
		copy(out, putHeader(count))
		if count == 0 {
			return out[:HeaderSize], nil
		}
		// Anchor: the first element at full source precision.
		copy(out[HeaderSize:HeaderSize+width], src[:width])

		prev := readFloat(src, p)
		body := out[HeaderSize+width:]
		for i := 1; i < count; i++ {
			cur := readFloat(src[i*width:], p)
			diff := cur - prev
			scaled := int64(math.Floor(diff * DeltaScaleFactor))
			writeDeltaCode(body[(i-1)*codeWidth:], scaled, codeWidth)
			prev = cur
		}
		return out, nil
	}
}

func deltaDecode(p Precision, codeWidth int) DecodeFunc {
	width := p.Width()
	return func(src []byte) ([]byte, error) {
		count, err := readHeader(src)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, nil
		}
		if len(src) < HeaderSize+width {
			return nil, fmt.Errorf("transform: delta buffer too short for anchor: %d bytes", len(src))
		}
		body := src[HeaderSize+width:]
		if len(body) < (count-1)*codeWidth {
			return nil, fmt.Errorf("transform: delta body too short: have %d, want %d", len(body), (count-1)*codeWidth)
		}
		out := make([]byte, count*width)
		prev := readFloat(src[HeaderSize:], p)
		writeFloat(out, p, prev)
		for i := 1; i < count; i++ {
			scaled := readDeltaCode(body[(i-1)*codeWidth:], codeWidth)
			prev += float64(scaled) / DeltaScaleFactor
			writeFloat(out[i*width:], p, prev)
		}
		return out, nil
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// writeDeltaCode stores a quantized delta using two's-complement
// wraparound at the requested code width (§4.2, §9).
func writeDeltaCode(dst []byte, scaled int64, codeWidth int) {
	switch codeWidth {
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(int16(scaled)))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(int32(scaled)))
	default:
		panic("transform: unsupported delta code width")
	}
}

// readDeltaCode is the signed inverse of writeDeltaCode.
func readDeltaCode(src []byte, codeWidth int) int64 {
	switch codeWidth {
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(src)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(src)))
	default:
		panic("transform: unsupported delta code width")
	}
}
