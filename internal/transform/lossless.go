package transform

// LosslessEncode is the identity transform: it copies the source bytes
// unchanged. It is used directly for the lossless algorithm, and also
// backs (cast_64_to_32, f32), which the dispatch table in §3 documents as
// collapsing to lossless since there is nothing to cast.
func LosslessEncode(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// LosslessDecode is the identity inverse of LosslessEncode.
func LosslessDecode(src []byte) ([]byte, error) {
	return LosslessEncode(src)
}
