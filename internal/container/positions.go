package container

import (
	"encoding/binary"
	"fmt"

	"github.com/chrisagrams/mscompress/internal/divide"
)

// encodePositionList serializes a PositionList as a span count followed by
// its start and end offset arrays (§4.7 item 4, "per-division position
// tables").
func encodePositionList(buf []byte, pl divide.PositionList) []byte {
	n := pl.Len()
	var nb [4]byte
	binary.LittleEndian.PutUint32(nb[:], uint32(n))
	buf = append(buf, nb[:]...)
	for _, v := range pl.Start {
		buf = appendInt64(buf, v)
	}
	for _, v := range pl.End {
		buf = appendInt64(buf, v)
	}
	for i := 0; i < n; i++ {
		var v int64
		if i < len(pl.Decoded) {
			v = pl.Decoded[i]
		}
		buf = appendInt64(buf, v)
	}
	return buf
}

// decodePositionList reads back a PositionList written by
// encodePositionList, returning the number of bytes consumed.
func decodePositionList(buf []byte, fileEnd int64) (divide.PositionList, int, error) {
	if len(buf) < 4 {
		return divide.PositionList{}, 0, fmt.Errorf("container: position list truncated")
	}
	n := int(binary.LittleEndian.Uint32(buf))
	off := 4
	need := off + 24*n
	if len(buf) < need {
		return divide.PositionList{}, 0, fmt.Errorf("container: position list truncated: have %d, want %d", len(buf), need)
	}
	pl := divide.NewPositionList(fileEnd)
	starts := make([]int64, n)
	ends := make([]int64, n)
	decoded := make([]int64, n)
	for i := 0; i < n; i++ {
		starts[i] = readInt64(buf[off:])
		off += 8
	}
	for i := 0; i < n; i++ {
		ends[i] = readInt64(buf[off:])
		off += 8
	}
	for i := 0; i < n; i++ {
		decoded[i] = readInt64(buf[off:])
		off += 8
	}
	for i := 0; i < n; i++ {
		pl.Append(starts[i], ends[i])
	}
	pl.Decoded = decoded
	return pl, off, nil
}

// EncodeDivisionPositions serializes a Division's three PositionLists in
// XML, Mz, Inten order.
func EncodeDivisionPositions(d divide.Division) []byte {
	var buf []byte
	buf = encodePositionList(buf, d.XML)
	buf = encodePositionList(buf, d.Mz)
	buf = encodePositionList(buf, d.Inten)
	return buf
}

// DecodeDivisionPositions reverses EncodeDivisionPositions.
func DecodeDivisionPositions(buf []byte, fileEnd int64) (divide.Division, int, error) {
	var d divide.Division
	total := 0

	xml, n, err := decodePositionList(buf, fileEnd)
	if err != nil {
		return d, 0, fmt.Errorf("xml: %w", err)
	}
	d.XML = xml
	buf = buf[n:]
	total += n

	mz, n, err := decodePositionList(buf, fileEnd)
	if err != nil {
		return d, 0, fmt.Errorf("mz: %w", err)
	}
	d.Mz = mz
	buf = buf[n:]
	total += n

	inten, n, err := decodePositionList(buf, fileEnd)
	if err != nil {
		return d, 0, fmt.Errorf("inten: %w", err)
	}
	d.Inten = inten
	total += n

	d.Weight = d.Mz.Weight() + d.Inten.Weight()
	if err := d.Validate(); err != nil {
		return d, 0, err
	}
	return d, total, nil
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func readInt64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}
