package mscompress

import (
	"context"
	"io"

	"github.com/chrisagrams/mscompress/internal/codec"
	"github.com/chrisagrams/mscompress/internal/container"
	"github.com/chrisagrams/mscompress/internal/divide"
	"github.com/chrisagrams/mscompress/internal/pipeline"
	"github.com/chrisagrams/mscompress/internal/xmlscan"
)

// CompressOption configures a single Compress call.
type CompressOption func(*compressOpts)

type compressOpts struct {
	progressCh chan<- pipeline.Progress
}

// WithCompressProgress requests per-division progress reports.
func WithCompressProgress(ch chan<- pipeline.Progress) CompressOption {
	return func(o *compressOpts) { o.progressCh = ch }
}

// Compress reads a complete mzML document from input, applies cfg's
// transform selection to the mz and intensity arrays, and writes the
// resulting container file to w (§1/§4).
func Compress(ctx context.Context, cfg Config, input []byte, w io.Writer, opts ...CompressOption) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var o compressOpts
	for _, fn := range opts {
		fn(&o)
	}

	format, err := xmlscan.ScanFormat(input)
	if err != nil {
		return &MalformedInputError{Reason: "metadata pass", Division: -1, Spectrum: -1, Offset: -1, Err: err}
	}

	mzPair, err := resolveAlgorithm(cfg.mzAlgo(), format.MzPrecision)
	if err != nil {
		return err
	}
	intenPair, err := resolveAlgorithm(cfg.intenAlgo(), format.IntenPrecision)
	if err != nil {
		return err
	}

	xml, mz, inten, err := xmlscan.ScanBoundaries(input, format.TotalSpec)
	if err != nil {
		spectrum, offset := -1, int64(-1)
		if located, ok := err.(interface {
			Spectrum() int
			Offset() int64
		}); ok {
			spectrum, offset = located.Spectrum(), located.Offset()
		}
		return &MalformedInputError{Reason: "boundary pass", Division: -1, Spectrum: spectrum, Offset: offset, Err: err}
	}

	divisions, threads, err := divide.Plan(xml, mz, inten, divide.Params{
		Divisions: cfg.Divisions,
		Blocksize: cfg.Blocksize,
		Threads:   cfg.Threads,
	})
	if err != nil {
		return &MalformedInputError{Reason: "partitioning", Division: -1, Spectrum: -1, Offset: -1, Err: err}
	}

	cw := container.NewWriter(w, "zstd")
	cw.SetFormat(format, mzPair.Algorithm, intenPair.Algorithm)

	comp := pipeline.NewCompressor(ctx, cw,
		pipeline.WithConcurrency(threads),
		pipeline.WithProgress(o.progressCh))

	for _, d := range divisions {
		xmlRaw := gatherXML(input, d.XML)
		mzRaw, mzDecoded, err := gatherNumeric(input, d.Mz, format.Compression, mzPair)
		if err != nil {
			return &CodecError{Reason: "mz array encode", Err: err}
		}
		intenRaw, intenDecoded, err := gatherNumeric(input, d.Inten, format.Compression, intenPair)
		if err != nil {
			return &CodecError{Reason: "intensity array encode", Err: err}
		}
		d.Mz.Decoded = mzDecoded
		d.Inten.Decoded = intenDecoded
		if err := comp.Submit(d, cfg.CompressionLevel, xmlRaw, mzRaw, intenRaw); err != nil {
			return err
		}
	}

	if err := comp.Finish(); err != nil {
		return err
	}

	hash := container.HashContent(input)
	if err := cw.Finish(int64(len(input)), hash); err != nil {
		return &IOError{Reason: "write footer", Err: err}
	}
	return nil
}

// gatherXML concatenates the literal bytes of every span in an xml
// PositionList, reproducing the skeleton around a division's binaries.
func gatherXML(input []byte, pl divide.PositionList) []byte {
	var buf []byte
	for i := range pl.Start {
		buf = append(buf, input[pl.Start[i]:pl.End[i]]...)
	}
	return buf
}

// gatherNumeric decodes every binary-array span in pl from its mzML
// source encoding, concatenates the resulting raw numeric bytes, and
// applies the resolved transform's Encode function to the whole
// division's worth of elements at once.
func gatherNumeric(input []byte, pl divide.PositionList, compression xmlscan.Compression, pair TransformPair) ([]byte, []int64, error) {
	var raw []byte
	decodedLens := make([]int64, len(pl.Start))
	for i := range pl.Start {
		decoded, err := codec.DecodeSource(input[pl.Start[i]:pl.End[i]], compression)
		if err != nil {
			return nil, nil, err
		}
		decodedLens[i] = int64(len(decoded))
		raw = append(raw, decoded...)
	}
	transformed, err := pair.Encode(raw)
	if err != nil {
		return nil, nil, err
	}
	return transformed, decodedLens, nil
}
