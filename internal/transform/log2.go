package transform

import (
	"encoding/binary"
	"fmt"
	"math"
)

// log2Scale is the fixed-point scale applied before truncating to a
// two's-complement 16-bit code: code[i] = floor(log2(x[i]) * log2Scale).
// log2(x) is negative for any x in (0,1), so the code is stored signed via
// the same writeDeltaCode/readDeltaCode helpers delta.go uses.
const log2Scale = 100

// Log2Encode returns the forward log2 transform for the given source
// precision (§4.2 "log2 × f32/f64"). Values that are zero, negative, or
// non-finite are undefined under this transform; the caller is
// responsible for only applying it when the configuration declares the
// array's domain safe (§4.2).
func Log2Encode(p Precision) EncodeFunc {
	width := p.Width()
	return func(src []byte) ([]byte, error) {
		if len(src)%width != 0 {
			return nil, fmt.Errorf("transform: log2 source length %d is not a multiple of %d", len(src), width)
		}
		count := len(src) / width
		out := make([]byte, HeaderSize+count*2)
		copy(out, putHeader(count))
		for i := 0; i < count; i++ {
			x := readFloat(src[i*width:], p)
			scaled := int64(math.Floor(math.Log2(x) * log2Scale))
			writeDeltaCode(out[HeaderSize+i*2:], scaled, 2)
		}
		return out, nil
	}
}

// Log2Decode returns the inverse log2 transform, reconstructing values at
// the declared source precision: x'[i] = exp2(code[i] / log2Scale), where
// code[i] is the signed 16-bit code written by Log2Encode.
func Log2Decode(p Precision) DecodeFunc {
	width := p.Width()
	return func(src []byte) ([]byte, error) {
		count, err := readHeader(src)
		if err != nil {
			return nil, err
		}
		body := src[HeaderSize:]
		if len(body) < count*2 {
			return nil, fmt.Errorf("transform: log2 body too short: have %d, want %d", len(body), count*2)
		}
		out := make([]byte, count*width)
		for i := 0; i < count; i++ {
			code := readDeltaCode(body[i*2:], 2)
			x := math.Exp2(float64(code) / log2Scale)
			writeFloat(out[i*width:], p, x)
		}
		return out, nil
	}
}

func readFloat(b []byte, p Precision) float64 {
	if p == F32 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func writeFloat(b []byte, p Precision, v float64) {
	if p == F32 {
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		return
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
