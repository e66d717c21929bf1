package divide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLists(n int, spanWidth int64, fileEnd int64) (xml, mz, inten PositionList) {
	xml = NewPositionList(fileEnd)
	mz = NewPositionList(fileEnd)
	inten = NewPositionList(fileEnd)
	off := int64(0)
	for i := 0; i < n; i++ {
		xml.Append(off, off+1)
		off++
		mz.Append(off, off+spanWidth)
		off += spanWidth
		xml.Append(off, off+1)
		off++
		inten.Append(off, off+spanWidth)
		off += spanWidth
	}
	xml.Append(off, off+1)
	return xml, mz, inten
}

func TestPositionListValidate(t *testing.T) {
	pl := NewPositionList(10)
	pl.Append(0, 5)
	pl.Append(5, 10)
	require.NoError(t, pl.Validate())

	bad := NewPositionList(10)
	bad.Append(5, 3)
	assert.Error(t, bad.Validate())

	overrun := NewPositionList(5)
	overrun.Append(0, 10)
	assert.Error(t, overrun.Validate())
}

func TestPositionListSliceCarriesDecoded(t *testing.T) {
	pl := NewPositionList(100)
	pl.Append(0, 10)
	pl.Append(10, 25)
	pl.Append(25, 30)
	pl.Decoded = []int64{8, 15, 4}

	sub := pl.Slice(1, 3)
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, []int64{15, 4}, sub.Decoded)
}

func TestPlanProducesContiguousDivisionsCoveringAllSpectra(t *testing.T) {
	const n = 20
	xml, mz, inten := buildLists(n, 50, 0)
	xml.FileEnd, mz.FileEnd, inten.FileEnd = lastEnd(xml), lastEnd(mz), lastEnd(inten)
	fileEnd := xml.FileEnd

	divisions, threads, err := Plan(xml, mz, inten, Params{Blocksize: 300, Threads: 4})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, threads, 1)
	assert.LessOrEqual(t, threads, 4)

	totalSpec := 0
	for i, d := range divisions {
		require.NoError(t, d.Validate(), "division %d", i)
		totalSpec += d.Mz.Len()
	}
	assert.Equal(t, n, totalSpec)

	// The last division's xml list must reach exactly fileEnd.
	last := divisions[len(divisions)-1]
	assert.Equal(t, fileEnd, last.XML.End[last.XML.Len()-1])
}

func TestPlanShrinksThreadsForSmallInput(t *testing.T) {
	xml, mz, inten := buildLists(1, 10, 0)
	xml.FileEnd = lastEnd(xml)

	divisions, threads, err := Plan(xml, mz, inten, Params{Threads: 8})
	require.NoError(t, err)
	assert.Len(t, divisions, 1)
	assert.Equal(t, 1, threads)
}

func TestPlanRejectsMismatchedSpanCounts(t *testing.T) {
	xml, mz, inten := buildLists(3, 10, 0)
	xml.FileEnd = lastEnd(xml)
	inten.Start = inten.Start[:2]
	inten.End = inten.End[:2]

	_, _, err := Plan(xml, mz, inten, Params{Threads: 1})
	assert.Error(t, err)
}

func lastEnd(pl PositionList) int64 {
	if pl.Len() == 0 {
		return 0
	}
	return pl.End[pl.Len()-1]
}
