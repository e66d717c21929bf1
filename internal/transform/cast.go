package transform

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cast64To32Encode implements (cast_64_to_32, f64): each f64 element is
// cast down to f32. The header records the element count; there is no
// anchor, since every element is independently reversible (up to
// ulp(f32(x))).
func Cast64To32Encode(src []byte) ([]byte, error) {
	if len(src)%8 != 0 {
		return nil, fmt.Errorf("transform: cast_64_to_32 source length %d is not a multiple of 8", len(src))
	}
	count := len(src) / 8
	out := make([]byte, HeaderSize+count*4)
	copy(out, putHeader(count))
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(src[i*8:])
		v := float32(math.Float64frombits(bits))
		binary.LittleEndian.PutUint32(out[HeaderSize+i*4:], math.Float32bits(v))
	}
	return out, nil
}

// Cast64To32Decode reverses Cast64To32Encode, widening each f32 back to
// f64. The widening is exact; the precision loss already happened during
// the forward cast.
func Cast64To32Decode(src []byte) ([]byte, error) {
	count, err := readHeader(src)
	if err != nil {
		return nil, err
	}
	body := src[HeaderSize:]
	if len(body) < count*4 {
		return nil, fmt.Errorf("transform: cast_64_to_32 body too short: have %d, want %d", len(body), count*4)
	}
	out := make([]byte, count*8)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(body[i*4:])
		v := float64(math.Float32frombits(bits))
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out, nil
}
