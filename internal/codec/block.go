package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Block is a single compressed frame plus the sizes needed to size the
// decoder's output buffer (§3 "CompressedBlock").
type Block struct {
	CompressedSize int
	OriginalSize   int
	Bytes          []byte
}

// encoders/decoders are pooled per level because constructing a zstd
// encoder allocates internal state; workers call BlockCompress /
// BlockDecompress concurrently, one call at a time per division, so a
// pool amortizes that cost across divisions without sharing a single
// encoder across goroutines.
var encoderPool sync.Map // level int -> *sync.Pool of *zstd.Encoder
var decoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("codec: zstd.NewReader: %v", err))
		}
		return d
	},
}

// encoderLevel maps the configuration's 1-22-style compression_level onto
// one of klauspost/compress/zstd's four documented speed tiers.
func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 12:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func poolForLevel(level int) *sync.Pool {
	if p, ok := encoderPool.Load(level); ok {
		return p.(*sync.Pool)
	}
	p := &sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
			if err != nil {
				panic(fmt.Sprintf("codec: zstd.NewWriter: %v", err))
			}
			return enc
		},
	}
	actual, _ := encoderPool.LoadOrStore(level, p)
	return actual.(*sync.Pool)
}

// BlockCompress entropy-compresses buf at the given level using the
// general-purpose frame coder required by §4.3 ("block_compress").
func BlockCompress(buf []byte, level int) (Block, error) {
	pool := poolForLevel(level)
	enc := pool.Get().(*zstd.Encoder)
	defer pool.Put(enc)

	compressed := enc.EncodeAll(buf, make([]byte, 0, len(buf)/2))
	return Block{
		CompressedSize: len(compressed),
		OriginalSize:   len(buf),
		Bytes:          compressed,
	}, nil
}

// BlockDecompress reverses BlockCompress, failing with a CodecError-class
// error if the decompressed length does not match originalSize (§4.3
// "block_decompress").
func BlockDecompress(block []byte, originalSize int) ([]byte, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)

	out, err := dec.DecodeAll(block, make([]byte, 0, originalSize))
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decode: %w", err)
	}
	if len(out) != originalSize {
		return nil, fmt.Errorf("codec: decompressed length %d != declared original size %d", len(out), originalSize)
	}
	return out, nil
}
