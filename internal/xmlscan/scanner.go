package xmlscan

import (
	"bytes"
	"fmt"

	"github.com/chrisagrams/mscompress/internal/divide"
)

var (
	markerScanEq   = newMarker("scan=")
	markerMsLevel  = newMarker("ms level")
	// markerBinary matches the full opening tag, not just "<binary", since
	// "<binary" is also a prefix of the real mzML elements
	// "<binaryDataArrayList>" and "<binaryDataArray>" that always precede
	// it; matching only the exact, attribute-free <binary> element avoids
	// mistaking those for the content-bearing tag.
	markerBinary    = newMarker("<binary>")
	markerBinaryEnd = newMarker("</binary>")
)

// ScanBoundaries runs the boundary pass of §4.1: for every spectrum it
// locates the "scan=" and "ms level" anchors and then the byte range of
// the mz and intensity <binary>...</binary> inner content, returning
// three aligned PositionLists (xml, mz, inten) such that interleaving
// xml[0], mz[0], xml[1], inten[0], xml[2], mz[1], ... reproduces the
// input exactly (§4.1).
func ScanBoundaries(data []byte, totalSpec int) (xml, mz, inten divide.PositionList, err error) {
	fileEnd := int64(len(data))
	xml = divide.NewPositionList(fileEnd)
	mz = divide.NewPositionList(fileEnd)
	inten = divide.NewPositionList(fileEnd)

	cursor := 0
	xmlStart := int64(0)

	for i := 0; i < totalSpec; i++ {
		scanIdx := markerScanEq.find(data, cursor)
		if scanIdx == -1 {
			return xml, mz, inten, &boundaryError{spectrum: i, offset: int64(cursor), reason: "missing scan= anchor"}
		}
		levelIdx := markerMsLevel.find(data, scanIdx)
		if levelIdx == -1 {
			return xml, mz, inten, &boundaryError{spectrum: i, offset: int64(scanIdx), reason: "missing ms level anchor"}
		}

		mzStart, mzEnd, _, err := nextBinaryContent(data, levelIdx)
		if err != nil {
			return xml, mz, inten, &boundaryError{spectrum: i, offset: int64(levelIdx), reason: "mz binary: " + err.Error()}
		}
		xml.Append(xmlStart, int64(mzStart))
		mz.Append(int64(mzStart), int64(mzEnd))

		intenStart, intenEnd, next2, err := nextBinaryContent(data, mzEnd)
		if err != nil {
			return xml, mz, inten, &boundaryError{spectrum: i, offset: int64(mzEnd), reason: "intensity binary: " + err.Error()}
		}
		// xml spans bracket binary *content* only, so the closing
		// </binary> tag after mzEnd belongs to the xml fragment between
		// the two arrays, not to either binary span.
		xml.Append(int64(mzEnd), int64(intenStart))
		inten.Append(int64(intenStart), int64(intenEnd))

		xmlStart = int64(intenEnd)
		cursor = next2
	}

	xml.Append(xmlStart, fileEnd)

	if mz.Len() != totalSpec || inten.Len() != totalSpec {
		return xml, mz, inten, fmt.Errorf("boundary pass: found %d/%d spectra before reaching declared total", mz.Len(), totalSpec)
	}
	return xml, mz, inten, nil
}

// nextBinaryContent locates the next <binary>...</binary> element at or
// after pos and returns the byte offsets of its inner content, plus the
// offset immediately following the closing tag.
func nextBinaryContent(data []byte, pos int) (contentStart, contentEnd, after int, err error) {
	tagIdx := markerBinary.find(data, pos)
	if tagIdx == -1 {
		return 0, 0, 0, fmt.Errorf("no <binary> element found")
	}
	gt := bytes.IndexByte(data[tagIdx:], '>')
	if gt == -1 {
		return 0, 0, 0, fmt.Errorf("unterminated <binary> opening tag")
	}
	gt += tagIdx
	contentStart = gt + 1
	closeIdx := markerBinaryEnd.find(data, contentStart)
	if closeIdx == -1 {
		return 0, 0, 0, fmt.Errorf("no matching </binary> element found")
	}
	contentEnd = closeIdx
	after = closeIdx + len(markerBinaryEnd.text)
	return contentStart, contentEnd, after, nil
}

type boundaryError struct {
	spectrum int
	offset   int64
	reason   string
}

func (e *boundaryError) Error() string {
	return fmt.Sprintf("boundary pass: spectrum %d at offset %d: %s", e.spectrum, e.offset, e.reason)
}

func (e *boundaryError) Spectrum() int { return e.spectrum }
func (e *boundaryError) Offset() int64 { return e.offset }
