package xmlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisagrams/mscompress/internal/transform"
)

func sampleDoc(compressionAttr string) []byte {
	doc := `<?xml version="1.0"?>
<mzML>
  <referenceableParamGroupList>
    <cvParam cvRef="MS" accession="MS:1000574" name="` + compressionAttr + `"/>
  </referenceableParamGroupList>
  <run>
    <spectrumList count="2">
      <spectrum index="0" id="scan=1">
        <cvParam accession="MS:1000511" name="ms level" value="1"/>
        <binaryDataArrayList count="2">
          <binaryDataArray>
            <cvParam accession="MS:1000514" name="m/z array"/>
            <cvParam accession="MS:1000523" name="64-bit float"/>
            <binary>bXoxCg==</binary>
          </binaryDataArray>
          <binaryDataArray>
            <cvParam accession="MS:1000515" name="intensity array"/>
            <cvParam accession="MS:1000521" name="32-bit float"/>
            <binary>aW50ZW4x</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
      <spectrum index="1" id="scan=2">
        <cvParam accession="MS:1000511" name="ms level" value="1"/>
        <binaryDataArrayList count="2">
          <binaryDataArray>
            <cvParam accession="MS:1000514" name="m/z array"/>
            <cvParam accession="MS:1000523" name="64-bit float"/>
            <binary>bXoyCg==</binary>
          </binaryDataArray>
          <binaryDataArray>
            <cvParam accession="MS:1000515" name="intensity array"/>
            <cvParam accession="MS:1000521" name="32-bit float"/>
            <binary>aW50ZW4y</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
    </spectrumList>
  </run>
</mzML>
`
	return []byte(doc)
}

func TestScanFormat(t *testing.T) {
	doc := sampleDoc("zlib compression")
	f, err := ScanFormat(doc)
	require.NoError(t, err)
	assert.Equal(t, transform.F64, f.MzPrecision)
	assert.Equal(t, transform.F32, f.IntenPrecision)
	assert.Equal(t, Zlib, f.Compression)
	assert.Equal(t, 2, f.TotalSpec)
}

func TestScanFormatErrorsOnTruncatedInput(t *testing.T) {
	_, err := ScanFormat([]byte(`<mzML><run>`))
	assert.Error(t, err)
}

func TestScanBoundariesReproducesInputByConcatenation(t *testing.T) {
	doc := sampleDoc("zlib compression")
	xml, mz, inten, err := ScanBoundaries(doc, 2)
	require.NoError(t, err)
	require.Equal(t, 2, mz.Len())
	require.Equal(t, 2, inten.Len())
	require.Equal(t, 5, xml.Len())

	var rebuilt []byte
	for i := 0; i < mz.Len(); i++ {
		rebuilt = append(rebuilt, doc[xml.Start[2*i]:xml.End[2*i]]...)
		rebuilt = append(rebuilt, doc[mz.Start[i]:mz.End[i]]...)
		rebuilt = append(rebuilt, doc[xml.Start[2*i+1]:xml.End[2*i+1]]...)
		rebuilt = append(rebuilt, doc[inten.Start[i]:inten.End[i]]...)
	}
	rebuilt = append(rebuilt, doc[xml.Start[xml.Len()-1]:xml.End[xml.Len()-1]]...)
	assert.Equal(t, doc, rebuilt)

	assert.Equal(t, "bXoxCg==", string(doc[mz.Start[0]:mz.End[0]]))
	assert.Equal(t, "aW50ZW4x", string(doc[inten.Start[0]:inten.End[0]]))
}

func TestScanBoundariesErrorsOnMissingSpectrum(t *testing.T) {
	doc := sampleDoc("zlib compression")
	_, _, _, err := ScanBoundaries(doc, 3)
	assert.Error(t, err)
}

func TestMarkerFind(t *testing.T) {
	// The marker text must include the closing '>' so a candidate inside
	// the longer "<binaryData>" tag (which shares the "<binary" prefix)
	// is rejected by HasPrefix and the search continues to the real tag.
	m := newMarker("<binary>")
	data := []byte("xxx<binaryData><binary>yyy")
	idx := m.find(data, 0)
	assert.Equal(t, 15, idx)

	assert.Equal(t, -1, m.find(data, 100))
}
