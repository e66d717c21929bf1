// Package divide implements the PositionList/Division data model and the
// partitioning algorithm of §4.4: splitting a scanned mzML file into N
// divisions of approximately equal encoded-byte weight.
package divide

import "fmt"

// PositionList is an ordered sequence of (start, end) byte offsets within
// the input view, plus a final FileEnd (§3 "PositionList"). Offsets are
// non-negative and strictly non-decreasing: Start[i] <= End[i] <=
// Start[i+1].
type PositionList struct {
	Start   []int64
	End     []int64
	FileEnd int64

	// Decoded holds, for mz/inten lists only, the byte length of each
	// span's content after base64/zlib decoding — the information the
	// transform algebra's division-wide encode discards by concatenating
	// every spectrum's raw bytes before encoding, and which decompression
	// needs back to split the division's decoded buffer per spectrum. It
	// is populated by the byte-codec layer at compress time, not by the
	// scanner, and is empty for xml lists.
	Decoded []int64
}

// NewPositionList returns an empty PositionList ending at fileEnd.
func NewPositionList(fileEnd int64) PositionList {
	return PositionList{FileEnd: fileEnd}
}

// Append records one more (start, end) span.
func (p *PositionList) Append(start, end int64) {
	p.Start = append(p.Start, start)
	p.End = append(p.End, end)
}

// Len returns the number of spans, i.e. total_spec for this list.
func (p PositionList) Len() int {
	return len(p.Start)
}

// Slice returns the sub-list covering spans [lo, hi).
func (p PositionList) Slice(lo, hi int) PositionList {
	out := PositionList{FileEnd: p.FileEnd}
	out.Start = append(out.Start, p.Start[lo:hi]...)
	out.End = append(out.End, p.End[lo:hi]...)
	if p.Decoded != nil {
		out.Decoded = append(out.Decoded, p.Decoded[lo:hi]...)
	}
	return out
}

// Validate checks the invariants of §3: non-negative, non-decreasing
// offsets, Start[i] <= End[i] <= Start[i+1].
func (p PositionList) Validate() error {
	if len(p.Start) != len(p.End) {
		return fmt.Errorf("divide: position list start/end length mismatch: %d != %d", len(p.Start), len(p.End))
	}
	prevEnd := int64(0)
	for i := range p.Start {
		if p.Start[i] < 0 || p.End[i] < 0 {
			return fmt.Errorf("divide: negative offset at span %d", i)
		}
		if p.Start[i] < prevEnd {
			return fmt.Errorf("divide: span %d starts (%d) before previous span ended (%d)", i, p.Start[i], prevEnd)
		}
		if p.Start[i] > p.End[i] {
			return fmt.Errorf("divide: span %d has start (%d) after end (%d)", i, p.Start[i], p.End[i])
		}
		prevEnd = p.End[i]
	}
	if prevEnd > p.FileEnd {
		return fmt.Errorf("divide: last span end (%d) exceeds file end (%d)", prevEnd, p.FileEnd)
	}
	return nil
}

// Weight returns the total number of bytes spanned by this list.
func (p PositionList) Weight() int64 {
	var w int64
	for i := range p.Start {
		w += p.End[i] - p.Start[i]
	}
	return w
}

// Division is three aligned PositionLists for one unit of parallel work
// (§3 "Division"): xml fragments bracketing each spectrum, the mz binary
// spans, and the intensity binary spans.
type Division struct {
	XML    PositionList
	Mz     PositionList
	Inten  PositionList
	Weight int64
}

// Validate checks the Division invariants of §3: Mz.Len() == Inten.Len(),
// and XML.Len() == 2*Mz.Len()+1 (spectra are bracketed by XML fragments).
func (d Division) Validate() error {
	if d.Mz.Len() != d.Inten.Len() {
		return fmt.Errorf("divide: mz/inten span count mismatch: %d != %d", d.Mz.Len(), d.Inten.Len())
	}
	if d.XML.Len() != 2*d.Mz.Len()+1 {
		return fmt.Errorf("divide: xml span count %d, want %d", d.XML.Len(), 2*d.Mz.Len()+1)
	}
	return nil
}
