package container

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/chrisagrams/mscompress/internal/divide"
)

// lenTableEntrySize is the encoded width of one StreamBlock entry:
// compressed size, original size, and an xxHash64 checksum, each 8 bytes.
const lenTableEntrySize = 24

// Reader parses a complete compressed file already held in memory,
// trusting only the Header and Footer magic values before interpreting
// anything else.
type Reader struct {
	data   []byte
	Header Header
	Footer Footer

	xmlLens   []StreamBlock
	mzLens    []StreamBlock
	intenLens []StreamBlock

	// xmlOffsets[i]/mzOffsets[i]/intenOffsets[i] is the absolute file offset
	// of division i's block within its stream's contiguous region, so Block
	// does not need to re-sum every preceding division's compressed size.
	xmlOffsets   []int64
	mzOffsets    []int64
	intenOffsets []int64

	divisions []divide.Division
}

// cumulativeOffsets returns, for each division, the absolute offset of its
// block relative to base, given the preceding divisions' compressed sizes.
func cumulativeOffsets(lens []StreamBlock, base int64) []int64 {
	offsets := make([]int64, len(lens))
	off := base
	for i, l := range lens {
		offsets[i] = off
		off += l.CompressedSize
	}
	return offsets
}

// NewReader parses data's header and footer and the trailing tables,
// returning a Reader ready to serve individual division blocks.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("container: input too small to hold header and footer")
	}
	h, err := DecodeHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	f, err := DecodeFooter(data[len(data)-FooterSize:])
	if err != nil {
		return nil, err
	}

	r := &Reader{data: data, Header: h, Footer: f}

	n := int(f.DivisionCount)
	tableStart := f.PositionTableOffset
	lenTableSize := int64(lenTableEntrySize * n)

	xmlLenBuf := data[tableStart : tableStart+lenTableSize]
	mzLenBuf := data[tableStart+lenTableSize : tableStart+2*lenTableSize]
	intenLenBuf := data[tableStart+2*lenTableSize : tableStart+3*lenTableSize]
	r.xmlLens = decodeLenTable(xmlLenBuf)
	r.mzLens = decodeLenTable(mzLenBuf)
	r.intenLens = decodeLenTable(intenLenBuf)
	r.xmlOffsets = cumulativeOffsets(r.xmlLens, f.XMLBlockOffset)
	r.mzOffsets = cumulativeOffsets(r.mzLens, f.MzBlockOffset)
	r.intenOffsets = cumulativeOffsets(r.intenLens, f.IntenBlockOffset)

	posOff := tableStart + 3*lenTableSize
	posBuf := data[posOff : len(data)-FooterSize]
	r.divisions = make([]divide.Division, n)
	for i := 0; i < n; i++ {
		d, consumed, err := DecodeDivisionPositions(posBuf, h.OriginalSize)
		if err != nil {
			return nil, fmt.Errorf("container: division %d position table: %w", i, err)
		}
		r.divisions[i] = d
		posBuf = posBuf[consumed:]
	}

	return r, nil
}

func decodeLenTable(buf []byte) []StreamBlock {
	n := len(buf) / lenTableEntrySize
	out := make([]StreamBlock, n)
	off := 0
	for i := 0; i < n; i++ {
		out[i].CompressedSize = int64(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		out[i].OriginalSize = int64(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		out[i].Checksum = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	return out
}

// DivisionCount returns the number of divisions recorded in the footer.
func (r *Reader) DivisionCount() int {
	return int(r.Footer.DivisionCount)
}

// Division returns the decoded position table for division i.
func (r *Reader) Division(i int) divide.Division {
	return r.divisions[i]
}

// Block returns the raw compressed bytes and declared original size of
// one stream's block for division i. stream is "xml", "mz", or "inten".
func (r *Reader) Block(stream string, i int) (compressed []byte, originalSize int, err error) {
	var lens []StreamBlock
	var offsets []int64
	switch stream {
	case "xml":
		lens, offsets = r.xmlLens, r.xmlOffsets
	case "mz":
		lens, offsets = r.mzLens, r.mzOffsets
	case "inten":
		lens, offsets = r.intenLens, r.intenOffsets
	default:
		return nil, 0, fmt.Errorf("container: unknown stream %q", stream)
	}
	if i < 0 || i >= len(lens) {
		return nil, 0, fmt.Errorf("container: division index %d out of range [0,%d)", i, len(lens))
	}
	off := offsets[i]
	size := lens[i].CompressedSize
	block := r.data[off : off+size]
	if got := xxhash.Sum64(block); got != lens[i].Checksum {
		return nil, 0, fmt.Errorf("container: %s block %d checksum mismatch: got %x, want %x", stream, i, got, lens[i].Checksum)
	}
	return block, int(lens[i].OriginalSize), nil
}
