package xmlscan

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/chrisagrams/mscompress/internal/transform"
)

// Compression identifies the encoding of a binary element's content in
// the original mzML document (§3 "source_compression").
type Compression int

const (
	Raw Compression = iota
	Zlib
)

func (c Compression) String() string {
	if c == Zlib {
		return "zlib"
	}
	return "raw"
}

// Format is the per-file DataFormat descriptor discovered by the
// metadata pass (§3 "DataFormat").
type Format struct {
	MzPrecision    transform.Precision
	IntenPrecision transform.Precision
	Compression    Compression
	TotalSpec      int
}

// mzML controlled-vocabulary accession numbers recognized by the
// metadata pass.
const (
	accMass       = 1000514
	accIntensity  = 1000515
	acc32i        = 1000519
	acc16e        = 1000520
	acc32f        = 1000521
	acc64i        = 1000522
	acc64d        = 1000523
	accZlib       = 1000574
	accNoCompress = 1000576
)

func precisionFor(accession int) (transform.Precision, bool) {
	switch accession {
	case acc32i, acc16e, acc32f:
		return transform.F32, true
	case acc64i, acc64d:
		return transform.F64, true
	default:
		return 0, false
	}
}

type role int

const (
	roleNone role = iota
	roleMass
	roleIntensity
)

var (
	tagOpenCV           = newMarker("<cvParam")
	tagOpenSpectrumList = newMarker("<spectrumList")
)

// ScanFormat runs the metadata pass of §4.1: it walks the XML event
// stream until both array roles have a numeric-format assignment,
// recognizing cvParam accession codes and the spectrumList@count
// attribute along the way. It terminates as soon as the DataFormat is
// fully populated, without necessarily consuming the whole document.
func ScanFormat(data []byte) (Format, error) {
	var f Format
	var pending role
	var mzSet, intenSet bool

	pos := 0
	for pos < len(data) {
		cvIdx := tagOpenCV.find(data, pos)
		slIdx := tagOpenSpectrumList.find(data, pos)

		var tagStart int
		switch {
		case cvIdx == -1 && slIdx == -1:
			return f, fmt.Errorf("metadata pass: reached end of input before both array formats were assigned")
		case cvIdx == -1:
			tagStart = slIdx
		case slIdx == -1:
			tagStart = cvIdx
		case cvIdx < slIdx:
			tagStart = cvIdx
		default:
			tagStart = slIdx
		}

		tagEndRel := bytes.IndexByte(data[tagStart:], '>')
		if tagEndRel == -1 {
			return f, fmt.Errorf("metadata pass: unterminated tag at offset %d", tagStart)
		}
		tag := data[tagStart : tagStart+tagEndRel+1]
		pos = tagStart + tagEndRel + 1

		switch {
		case bytes.HasPrefix(tag, tagOpenSpectrumList.text):
			if v, ok := attrValue(tag, "count"); ok {
				if n, err := strconv.Atoi(v); err == nil {
					f.TotalSpec = n
				}
			}
		case bytes.HasPrefix(tag, tagOpenCV.text):
			accStr, ok := attrValue(tag, "accession")
			if !ok {
				continue
			}
			code, ok := parseAccession(accStr)
			if !ok {
				continue
			}
			switch code {
			case accMass:
				pending = roleMass
			case accIntensity:
				pending = roleIntensity
			case accZlib:
				f.Compression = Zlib
			case accNoCompress:
				f.Compression = Raw
			default:
				if prec, ok := precisionFor(code); ok {
					switch pending {
					case roleMass:
						f.MzPrecision = prec
						mzSet = true
					case roleIntensity:
						f.IntenPrecision = prec
						intenSet = true
					}
				}
			}
		}

		if mzSet && intenSet {
			return f, nil
		}
	}
	return f, fmt.Errorf("metadata pass: reached end of input before both array formats were assigned")
}

// attrValue extracts the value of a double-quoted XML attribute from a
// single tag's raw bytes.
func attrValue(tag []byte, name string) (string, bool) {
	needle := []byte(name + `="`)
	idx := bytes.Index(tag, needle)
	if idx == -1 {
		return "", false
	}
	start := idx + len(needle)
	end := bytes.IndexByte(tag[start:], '"')
	if end == -1 {
		return "", false
	}
	return string(tag[start : start+end]), true
}

// parseAccession extracts the numeric suffix of an "MS:NNNNNNN"
// accession value.
func parseAccession(s string) (int, bool) {
	idx := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			idx = i
			break
		}
	}
	if idx == -1 || idx+1 >= len(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
