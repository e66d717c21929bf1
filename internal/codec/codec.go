// Package codec implements the byte-codec layer of §4.3: base64/zlib
// framing of a source binary element's content, and the general-purpose
// entropy coder used to compress transformed buffers.
package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/chrisagrams/mscompress/internal/xmlscan"
)

// DecodeSource reverses a source binary element's base64 encoding and, if
// compression is Zlib, its zlib deflation, returning the raw typed
// numeric buffer (§4.3 "decode_source").
func DecodeSource(src []byte, compression xmlscan.Compression) ([]byte, error) {
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(src)))
	n, err := base64.StdEncoding.Decode(decoded, src)
	if err != nil {
		return nil, fmt.Errorf("codec: base64 decode: %w", err)
	}
	decoded = decoded[:n]

	if compression != xmlscan.Zlib {
		return decoded, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("codec: zlib reader: %w", err)
	}
	defer zr.Close()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("codec: zlib inflate: %w", err)
	}
	return inflated, nil
}

// EncodeSource reverses DecodeSource, base64-encoding (and, if requested,
// zlib-deflating) a raw typed numeric buffer back into binary-element
// text (§4.3 "encode_source").
//
// For compression == Raw the result is the canonical padded base64 text
// of raw, with no line breaks; it is byte-identical to an original that
// was itself canonical, but line breaks in the original (which
// DecodeSource ignores) are not reproduced. For compression == Zlib, the deflated
// bytes are produced by Go's compress/zlib and may differ from whatever
// external encoder produced the original stream, even though both inflate
// to the same content; byte-identical round-tripping of zlib-compressed
// binary elements is therefore not guaranteed, only content-identical
// round-tripping after decode_source/encode_source.
func EncodeSource(raw []byte, compression xmlscan.Compression) ([]byte, error) {
	payload := raw
	if compression == xmlscan.Zlib {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("codec: zlib deflate: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("codec: zlib deflate close: %w", err)
		}
		payload = buf.Bytes()
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(len(payload)))
	base64.StdEncoding.Encode(out, payload)
	return out, nil
}
