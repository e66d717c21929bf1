package mscompress

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/chrisagrams/mscompress/internal/codec"
	"github.com/chrisagrams/mscompress/internal/container"
	"github.com/chrisagrams/mscompress/internal/divide"
	"github.com/chrisagrams/mscompress/internal/pipeline"
	"github.com/chrisagrams/mscompress/internal/xmlscan"
)

// DecompressOption configures a single Decompress call.
type DecompressOption func(*decompressOpts)

type decompressOpts struct {
	concurrency int
	progressCh  chan<- pipeline.Progress
}

// WithDecompressConcurrency overrides the worker pool size (default
// runtime.GOMAXPROCS(-1) via pipeline's own default).
func WithDecompressConcurrency(n int) DecompressOption {
	return func(o *decompressOpts) { o.concurrency = n }
}

// WithDecompressProgress requests per-division progress reports.
func WithDecompressProgress(ch chan<- pipeline.Progress) DecompressOption {
	return func(o *decompressOpts) { o.progressCh = ch }
}

// Decompress reverses Compress: it parses data's container layout,
// entropy-decompresses each division's three streams in parallel, then
// un-transforms each division and writes the reconstructed mzML document
// to w, strictly in division order (§4.5, §4.7).
func Decompress(ctx context.Context, data []byte, w io.Writer, opts ...DecompressOption) error {
	var o decompressOpts
	for _, fn := range opts {
		fn(&o)
	}

	cr, err := container.NewReader(data)
	if err != nil {
		return &MalformedInputError{Reason: "container header/footer", Division: -1, Spectrum: -1, Offset: -1, Err: err}
	}

	mzPair, err := dispatch(cr.Footer.MzAlgorithm, cr.Footer.Format.MzPrecision)
	if err != nil {
		return err
	}
	intenPair, err := dispatch(cr.Footer.IntenAlgorithm, cr.Footer.Format.IntenPrecision)
	if err != nil {
		return err
	}

	results := make(map[int]pipeline.DivisionResult, cr.DivisionCount())
	var resultErr error

	sink := func(r pipeline.DivisionResult) error {
		results[r.Division] = r
		return nil
	}

	pipelineOpts := []pipeline.Option{pipeline.WithProgress(o.progressCh)}
	if o.concurrency > 0 {
		pipelineOpts = append(pipelineOpts, pipeline.WithConcurrency(o.concurrency))
	}
	dec := pipeline.NewDecompressor(ctx, sink, pipelineOpts...)

	for i := 0; i < cr.DivisionCount(); i++ {
		xmlComp, xmlOrig, err := cr.Block("xml", i)
		if err != nil {
			resultErr = err
			break
		}
		mzComp, mzOrig, err := cr.Block("mz", i)
		if err != nil {
			resultErr = err
			break
		}
		intenComp, intenOrig, err := cr.Block("inten", i)
		if err != nil {
			resultErr = err
			break
		}
		if err := dec.Submit(xmlComp, mzComp, intenComp, xmlOrig, mzOrig, intenOrig); err != nil {
			resultErr = err
			break
		}
	}

	if err := dec.Finish(); err != nil && resultErr == nil {
		resultErr = err
	}
	if resultErr != nil {
		return &CodecError{Reason: "division decompression", Err: resultErr}
	}

	order := make([]int, 0, len(results))
	for k := range results {
		order = append(order, k)
	}
	sort.Ints(order)

	for _, i := range order {
		r := results[i]
		div := cr.Division(i)
		if err := writeDivision(w, div, r, mzPair, intenPair, cr.Footer.Format.Compression); err != nil {
			return err
		}
	}
	return nil
}

// writeDivision reassembles one division's reconstructed xml/mz/inten
// streams back into mzML byte order: xml[0], mz[0], xml[1], inten[0],
// xml[2], mz[1], ... (§4.1), re-encoding each numeric span to its
// original source_compression form before splicing it between its
// bracketing xml fragments.
func writeDivision(w io.Writer, div divide.Division, r pipeline.DivisionResult, mzPair, intenPair TransformPair, compression xmlscan.Compression) error {
	mzValues, err := splitNumeric(r.MzRaw, div.Mz, mzPair)
	if err != nil {
		return &CodecError{Reason: "mz array decode", Err: err}
	}
	intenValues, err := splitNumeric(r.IntenRaw, div.Inten, intenPair)
	if err != nil {
		return &CodecError{Reason: "intensity array decode", Err: err}
	}

	xmlSpans := splitXML(r.XMLRaw, div.XML)

	n := div.Mz.Len()
	for i := 0; i < n; i++ {
		if _, err := w.Write(xmlSpans[2*i]); err != nil {
			return &IOError{Reason: "write xml fragment", Err: err}
		}
		mzText, err := codec.EncodeSource(mzValues[i], compression)
		if err != nil {
			return &CodecError{Reason: "mz array re-encode", Err: err}
		}
		if _, err := w.Write(mzText); err != nil {
			return &IOError{Reason: "write mz binary", Err: err}
		}
		if _, err := w.Write(xmlSpans[2*i+1]); err != nil {
			return &IOError{Reason: "write xml fragment", Err: err}
		}
		intenText, err := codec.EncodeSource(intenValues[i], compression)
		if err != nil {
			return &CodecError{Reason: "intensity array re-encode", Err: err}
		}
		if _, err := w.Write(intenText); err != nil {
			return &IOError{Reason: "write intensity binary", Err: err}
		}
	}
	if _, err := w.Write(xmlSpans[2*n]); err != nil {
		return &IOError{Reason: "write trailing xml fragment", Err: err}
	}
	return nil
}

// splitXML slices a division's concatenated xml bytes back into its
// individual fragments using the position list's recorded span lengths.
func splitXML(raw []byte, pl divide.PositionList) [][]byte {
	out := make([][]byte, pl.Len())
	off := 0
	for i := range pl.Start {
		n := int(pl.End[i] - pl.Start[i])
		out[i] = raw[off : off+n]
		off += n
	}
	return out
}

// splitNumeric reverses a transform's Decode over a division's
// concatenated numeric buffer and splits the result back into
// per-spectrum raw byte slices using the span list's recorded decoded
// lengths (§4.2/§4.7).
func splitNumeric(raw []byte, pl divide.PositionList, pair TransformPair) ([][]byte, error) {
	decoded, err := pair.Decode(raw)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pl.Decoded))
	off := 0
	for i, n := range pl.Decoded {
		if off+int(n) > len(decoded) {
			return nil, fmt.Errorf("decode: span %d exceeds decoded buffer: off=%d n=%d len=%d", i, off, n, len(decoded))
		}
		out[i] = decoded[off : off+int(n)]
		off += int(n)
	}
	return out, nil
}
