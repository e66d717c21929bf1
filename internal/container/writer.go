package container

import (
	"crypto/md5"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/chrisagrams/mscompress/internal/divide"
	"github.com/chrisagrams/mscompress/internal/transform"
	"github.com/chrisagrams/mscompress/internal/xmlscan"
)

// StreamBlock is one compressed block belonging to one of the three
// interleaved streams (xml, mz, inten) of a single division. Checksum is
// the xxHash64 of the compressed bytes, checked on read so that a
// corrupted block is caught before it reaches the entropy decoder rather
// than surfacing as an opaque zstd failure.
type StreamBlock struct {
	CompressedSize int64
	OriginalSize   int64
	Checksum       uint64
}

// DivisionBlocks holds the three compressed streams for one division,
// already encoded by the byte-codec and entropy-coder layers, ready to be
// placed into the block region in division order (§4.7 item 2).
type DivisionBlocks struct {
	XML, Mz, Inten []byte
	XMLOriginal    int
	MzOriginal     int
	IntenOriginal  int
	Positions      divide.Division
}

// Writer assembles a compressed file: header, block region (xml blocks in
// division order, then mz blocks in division order, then inten blocks in
// division order), block-length tables, per-division position tables, and
// footer, in the order laid out by §4.7. Blocks must be supplied in
// division order; the caller (the pipeline's sequencer) is responsible
// for that ordering.
//
// The three streams are kept in separate contiguous regions, rather than
// interleaved division-by-division, so that the footer's three block
// offsets are enough to random-access any single stream's blocks without
// walking the others.
type Writer struct {
	w              io.Writer
	method         string
	format         xmlscan.Format
	mzAlgorithm    transform.Algorithm
	intenAlgorithm transform.Algorithm

	xmlRegion, mzRegion, intenRegion []byte
	xmlLens, mzLens, intenLens       []StreamBlock
	positions                        [][]byte
}

// NewWriter returns a Writer that buffers a fixed-layout compressed file
// in memory and flushes it to w on Finish, identifying its entropy coder
// as method (e.g. "zstd").
func NewWriter(w io.Writer, method string) *Writer {
	return &Writer{w: w, method: method}
}

// WriteDivision appends one division's three compressed streams to their
// respective regions and records its lengths and position table for the
// trailing tables. Divisions must be supplied in order.
func (cw *Writer) WriteDivision(db DivisionBlocks) error {
	cw.xmlRegion = append(cw.xmlRegion, db.XML...)
	cw.xmlLens = append(cw.xmlLens, StreamBlock{CompressedSize: int64(len(db.XML)), OriginalSize: int64(db.XMLOriginal), Checksum: xxhash.Sum64(db.XML)})

	cw.mzRegion = append(cw.mzRegion, db.Mz...)
	cw.mzLens = append(cw.mzLens, StreamBlock{CompressedSize: int64(len(db.Mz)), OriginalSize: int64(db.MzOriginal), Checksum: xxhash.Sum64(db.Mz)})

	cw.intenRegion = append(cw.intenRegion, db.Inten...)
	cw.intenLens = append(cw.intenLens, StreamBlock{CompressedSize: int64(len(db.Inten)), OriginalSize: int64(db.IntenOriginal), Checksum: xxhash.Sum64(db.Inten)})

	cw.positions = append(cw.positions, EncodeDivisionPositions(db.Positions))
	return nil
}

// SetFormat records the DataFormat descriptor and the algorithm tag each
// array role was compressed with, both written into the footer so a
// reader never needs out-of-band configuration to decompress.
func (cw *Writer) SetFormat(f xmlscan.Format, mzAlgorithm, intenAlgorithm transform.Algorithm) {
	cw.format = f
	cw.mzAlgorithm = mzAlgorithm
	cw.intenAlgorithm = intenAlgorithm
}

// Finish writes the header, the three block regions, the block-length
// tables, the per-division position tables, and the footer, in that
// order, completing the file. contentHash is the 128-bit hash of the
// original input bytes.
func (cw *Writer) Finish(originalSize int64, contentHash [16]byte) error {
	var offset int64

	h := Header{
		VersionMajor:      FormatVersionMajor,
		VersionMinor:      FormatVersionMinor,
		OriginalSize:      originalSize,
		ContentHash:       contentHash,
		CompressionMethod: cw.method,
	}
	if err := cw.writeAt(h.Encode(), &offset); err != nil {
		return fmt.Errorf("container: write header: %w", err)
	}

	xmlOff := offset
	if err := cw.writeAt(cw.xmlRegion, &offset); err != nil {
		return fmt.Errorf("container: write xml region: %w", err)
	}
	mzOff := offset
	if err := cw.writeAt(cw.mzRegion, &offset); err != nil {
		return fmt.Errorf("container: write mz region: %w", err)
	}
	intenOff := offset
	if err := cw.writeAt(cw.intenRegion, &offset); err != nil {
		return fmt.Errorf("container: write inten region: %w", err)
	}

	posTableOffset := offset
	if err := cw.writeAt(encodeLenTable(cw.xmlLens), &offset); err != nil {
		return err
	}
	if err := cw.writeAt(encodeLenTable(cw.mzLens), &offset); err != nil {
		return err
	}
	if err := cw.writeAt(encodeLenTable(cw.intenLens), &offset); err != nil {
		return err
	}
	for _, p := range cw.positions {
		if err := cw.writeAt(p, &offset); err != nil {
			return fmt.Errorf("container: write position table: %w", err)
		}
	}

	footer := Footer{
		VersionMajor:        FormatVersionMajor,
		VersionMinor:        FormatVersionMinor,
		XMLBlockOffset:      xmlOff,
		MzBlockOffset:       mzOff,
		IntenBlockOffset:    intenOff,
		PositionTableOffset: posTableOffset,
		DivisionCount:       int32(len(cw.positions)),
		Format:              cw.format,
		MzAlgorithm:         cw.mzAlgorithm,
		IntenAlgorithm:      cw.intenAlgorithm,
	}
	return cw.writeAt(footer.Encode(), &offset)
}

func (cw *Writer) writeAt(buf []byte, offset *int64) error {
	n, err := cw.w.Write(buf)
	*offset += int64(n)
	return err
}

func encodeLenTable(blocks []StreamBlock) []byte {
	buf := make([]byte, 0, lenTableEntrySize*len(blocks))
	for _, b := range blocks {
		buf = appendInt64(buf, b.CompressedSize)
		buf = appendInt64(buf, b.OriginalSize)
		buf = appendInt64(buf, int64(b.Checksum))
	}
	return buf
}

// HashContent computes the 128-bit content hash used in the header
// (§4.7 item 1), grounded on the design decision to use crypto/md5 since
// no non-cryptographic 128-bit hash appears anywhere in the example pack.
func HashContent(data []byte) [16]byte {
	return md5.Sum(data)
}
