package mscompress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisagrams/mscompress/internal/container"
)

func mzBinary(vals ...float64) string {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func intenBinary(vals ...float32) string {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// buildDoc constructs a minimal but realistic mzML document with n
// spectra, f64 mz arrays, f32 intensity arrays, and no source compression,
// exercising the full scanner/divider/transform/container pipeline with a
// byte-for-byte round trip under the lossless algorithm.
func buildDoc(n int) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString(`<mzML>` + "\n")
	b.WriteString(`  <referenceableParamGroupList>` + "\n")
	b.WriteString(`    <cvParam accession="MS:1000576" name="no compression"/>` + "\n")
	b.WriteString(`  </referenceableParamGroupList>` + "\n")
	b.WriteString(`  <run>` + "\n")
	fmt.Fprintf(&b, "    <spectrumList count=\"%d\">\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "      <spectrum index=\"%d\" id=\"scan=%d\">\n", i, i+1)
		b.WriteString(`        <cvParam accession="MS:1000511" name="ms level" value="1"/>` + "\n")
		b.WriteString(`        <binaryDataArrayList count="2">` + "\n")
		b.WriteString(`          <binaryDataArray>` + "\n")
		b.WriteString(`            <cvParam accession="MS:1000514" name="m/z array"/>` + "\n")
		b.WriteString(`            <cvParam accession="MS:1000523" name="64-bit float"/>` + "\n")
		fmt.Fprintf(&b, "            <binary>%s</binary>\n", mzBinary(float64(i)+0.1, float64(i)+0.2, float64(i)+0.3))
		b.WriteString(`          </binaryDataArray>` + "\n")
		b.WriteString(`          <binaryDataArray>` + "\n")
		b.WriteString(`            <cvParam accession="MS:1000515" name="intensity array"/>` + "\n")
		b.WriteString(`            <cvParam accession="MS:1000521" name="32-bit float"/>` + "\n")
		fmt.Fprintf(&b, "            <binary>%s</binary>\n", intenBinary(float32(i)*10, float32(i)*20))
		b.WriteString(`          </binaryDataArray>` + "\n")
		b.WriteString(`        </binaryDataArrayList>` + "\n")
		b.WriteString(`      </spectrum>` + "\n")
	}
	b.WriteString(`    </spectrumList>` + "\n")
	b.WriteString(`  </run>` + "\n")
	b.WriteString(`</mzML>` + "\n")
	return b.String()
}

func TestCompressDecompressRoundTripLossless(t *testing.T) {
	doc := []byte(buildDoc(6))

	cfg := DefaultConfig()
	cfg.Divisions = 3
	cfg.Threads = 2

	var compressed bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &compressed))

	var restored bytes.Buffer
	require.NoError(t, Decompress(context.Background(), compressed.Bytes(), &restored))

	assert.Equal(t, doc, restored.Bytes())
}

func TestCompressDecompressRoundTripSingleDivisionSingleThread(t *testing.T) {
	doc := []byte(buildDoc(3))

	cfg := DefaultConfig()
	cfg.Divisions = 1
	cfg.Threads = 1

	var compressed bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &compressed))

	var restored bytes.Buffer
	require.NoError(t, Decompress(context.Background(), compressed.Bytes(), &restored))

	assert.Equal(t, doc, restored.Bytes())
}

func TestCompressRejectsInvalidConfig(t *testing.T) {
	doc := []byte(buildDoc(1))
	cfg := DefaultConfig()
	cfg.Algorithm = "not-a-real-algorithm"

	var out bytes.Buffer
	err := Compress(context.Background(), cfg, doc, &out)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCompressRejectsMalformedInput(t *testing.T) {
	cfg := DefaultConfig()
	var out bytes.Buffer
	err := Compress(context.Background(), cfg, []byte(`<mzML><run></run></mzML>`), &out)
	require.Error(t, err)
	var malformed *MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}

func TestDecompressRejectsTruncatedContainer(t *testing.T) {
	var out bytes.Buffer
	err := Decompress(context.Background(), []byte("too short"), &out)
	require.Error(t, err)
	var malformed *MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}

func TestCompressDecompressWithDelta16Algorithm(t *testing.T) {
	doc := []byte(buildDoc(4))

	cfg := DefaultConfig()
	cfg.Algorithm = "delta16"
	cfg.Divisions = 2

	var compressed bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &compressed))

	var restored bytes.Buffer
	require.NoError(t, Decompress(context.Background(), compressed.Bytes(), &restored))

	// delta16 is lossy: check structural shape survives and sizes match,
	// rather than requiring byte-for-byte identity.
	assert.Equal(t, len(doc), len(restored.Bytes()))
}

// buildSingleSpectrumDoc builds a one-spectrum mzML document with a small
// mz array and the given intensity values, for tests that need to control
// the intensity array's shape directly.
func buildSingleSpectrumDoc(inten []float32) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString(`<mzML>` + "\n")
	b.WriteString(`  <referenceableParamGroupList>` + "\n")
	b.WriteString(`    <cvParam accession="MS:1000576" name="no compression"/>` + "\n")
	b.WriteString(`  </referenceableParamGroupList>` + "\n")
	b.WriteString(`  <run>` + "\n")
	b.WriteString(`    <spectrumList count="1">` + "\n")
	b.WriteString(`      <spectrum index="0" id="scan=1">` + "\n")
	b.WriteString(`        <cvParam accession="MS:1000511" name="ms level" value="1"/>` + "\n")
	b.WriteString(`        <binaryDataArrayList count="2">` + "\n")
	b.WriteString(`          <binaryDataArray>` + "\n")
	b.WriteString(`            <cvParam accession="MS:1000514" name="m/z array"/>` + "\n")
	b.WriteString(`            <cvParam accession="MS:1000523" name="64-bit float"/>` + "\n")
	fmt.Fprintf(&b, "            <binary>%s</binary>\n", mzBinary(100.1, 100.2))
	b.WriteString(`          </binaryDataArray>` + "\n")
	b.WriteString(`          <binaryDataArray>` + "\n")
	b.WriteString(`            <cvParam accession="MS:1000515" name="intensity array"/>` + "\n")
	b.WriteString(`            <cvParam accession="MS:1000521" name="32-bit float"/>` + "\n")
	fmt.Fprintf(&b, "            <binary>%s</binary>\n", intenBinary(inten...))
	b.WriteString(`          </binaryDataArray>` + "\n")
	b.WriteString(`        </binaryDataArrayList>` + "\n")
	b.WriteString(`      </spectrum>` + "\n")
	b.WriteString(`    </spectrumList>` + "\n")
	b.WriteString(`  </run>` + "\n")
	b.WriteString(`</mzML>` + "\n")
	return b.String()
}

// TestDelta16ShrinksMonotonicIntensityBlock exercises the documented
// property that delta16 substantially shrinks a monotonically increasing
// intensity array relative to lossless at the same codec level.
func TestDelta16ShrinksMonotonicIntensityBlock(t *testing.T) {
	inten := make([]float32, 1024)
	for i := range inten {
		inten[i] = float32(i) * 0.5
	}
	doc := []byte(buildSingleSpectrumDoc(inten))

	losslessSize := compressedIntenBlockSize(t, doc, "lossless")
	delta16Size := compressedIntenBlockSize(t, doc, "delta16")

	require.Less(t, delta16Size, losslessSize)
	reduction := 1 - float64(delta16Size)/float64(losslessSize)
	assert.Greater(t, reduction, 0.40, "delta16 should shrink the intensity block by more than 40%%, got %.1f%%", reduction*100)
}

// compressedIntenBlockSize compresses doc with algo applied to the
// intensity array only and returns the compressed size of its single
// division's intensity block.
func compressedIntenBlockSize(t *testing.T, doc []byte, algo string) int64 {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Algorithm = "lossless"
	cfg.IntenAlgorithm = algo
	cfg.Divisions = 1
	cfg.CompressionLevel = 3

	var out bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &out))

	r, err := container.NewReader(out.Bytes())
	require.NoError(t, err)
	block, _, err := r.Block("inten", 0)
	require.NoError(t, err)
	return int64(len(block))
}

// TestCompressOutputIdenticalAcrossThreadCounts exercises the documented
// property that the compressed output does not depend on the worker pool
// size: the sequencer always commits divisions in order regardless of how
// many goroutines raced to finish them.
func TestCompressOutputIdenticalAcrossThreadCounts(t *testing.T) {
	doc := []byte(buildDoc(40))

	cfg := DefaultConfig()
	cfg.Divisions = 8
	cfg.Blocksize = 50 // forces an actual multi-division split, see TestDivisionPositionTablesSumToTotalSpectra

	cfg.Threads = 1
	var single bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &single))

	cfg.Threads = 4
	var parallel bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &parallel))

	assert.Equal(t, single.Bytes(), parallel.Bytes())
}

// TestDivisionPositionTablesSumToTotalSpectra exercises the documented
// invariant that, across an 8-division file whose last division holds
// fewer spectra than the rest, the per-division position tables in the
// footer account for every spectrum and the reconstructed document's byte
// length matches the original exactly.
func TestDivisionPositionTablesSumToTotalSpectra(t *testing.T) {
	// Each spectrum's mz+inten binary spans weigh 44 bytes in buildDoc's
	// fixed-width encoding; a blocksize of 50 closes a division every 2
	// spectra for the first 7 divisions, leaving a final, smaller 8th
	// division holding whatever remains (1 spectrum for 15 total).
	const totalSpectra = 15
	doc := []byte(buildDoc(totalSpectra))

	cfg := DefaultConfig()
	cfg.Divisions = 8
	cfg.Threads = 1
	cfg.Blocksize = 50

	var compressed bytes.Buffer
	require.NoError(t, Compress(context.Background(), cfg, doc, &compressed))

	r, err := container.NewReader(compressed.Bytes())
	require.NoError(t, err)
	require.Equal(t, 8, r.DivisionCount())

	sum := 0
	for i := 0; i < r.DivisionCount(); i++ {
		sum += r.Division(i).Mz.Len()
	}
	assert.Equal(t, totalSpectra, sum)

	var restored bytes.Buffer
	require.NoError(t, Decompress(context.Background(), compressed.Bytes(), &restored))
	assert.Equal(t, len(doc), restored.Len())
	assert.Equal(t, doc, restored.Bytes())
}
