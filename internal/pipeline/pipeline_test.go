package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisagrams/mscompress/internal/codec"
	"github.com/chrisagrams/mscompress/internal/container"
	"github.com/chrisagrams/mscompress/internal/divide"
	"github.com/chrisagrams/mscompress/internal/xmlscan"
)

func divisionFor(n int) divide.Division {
	xml := divide.NewPositionList(100)
	xml.Append(0, 1)
	xml.Append(2, 3)
	xml.Append(4, 5)
	mz := divide.NewPositionList(100)
	mz.Append(1, 2)
	inten := divide.NewPositionList(100)
	inten.Append(3, 4)
	return divide.Division{XML: xml, Mz: mz, Inten: inten}
}

func TestCompressorCommitsInDivisionOrderDespiteCompletionOrder(t *testing.T) {
	var buf bytes.Buffer
	cw := container.NewWriter(&buf, "zstd")
	cw.SetFormat(xmlscan.Format{TotalSpec: 5}, 0, 0)

	c := NewCompressor(context.Background(), cw, WithConcurrency(4))

	const n = 5
	for i := 0; i < n; i++ {
		xmlRaw := []byte(fmt.Sprintf("xml-%d", i))
		// Vary payload size so workers finish out of submission order.
		mzRaw := bytes.Repeat([]byte{byte(i)}, (n-i)*97)
		intenRaw := []byte(fmt.Sprintf("inten-%d", i))
		require.NoError(t, c.Submit(divisionFor(i), 3, xmlRaw, mzRaw, intenRaw))
	}
	require.NoError(t, c.Finish())
	require.NoError(t, cw.Finish(0, container.HashContent(nil)))

	r, err := container.NewReader(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, n, r.DivisionCount())

	for i := 0; i < n; i++ {
		block, originalSize, err := r.Block("xml", i)
		require.NoError(t, err)
		raw, err := codec.BlockDecompress(block, originalSize)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("xml-%d", i), string(raw))
	}
}
