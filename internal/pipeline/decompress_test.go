package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisagrams/mscompress/internal/codec"
)

func TestDecompressorDeliversResultsInDivisionOrder(t *testing.T) {
	const n = 6
	var mu sync.Mutex
	var seen []int

	sink := func(r DivisionResult) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Division)
		assert.Equal(t, fmt.Sprintf("xml-%d", r.Division), string(r.XMLRaw))
		return nil
	}

	d := NewDecompressor(context.Background(), sink, WithConcurrency(4))
	for i := 0; i < n; i++ {
		xmlRaw := []byte(fmt.Sprintf("xml-%d", i))
		// Larger payloads for earlier divisions so later submissions can
		// finish their (smaller) work first, exercising the sequencer.
		mzRaw := make([]byte, (n-i)*211)
		intenRaw := []byte(fmt.Sprintf("inten-%d", i))

		xmlBlock, err := codec.BlockCompress(xmlRaw, 3)
		require.NoError(t, err)
		mzBlock, err := codec.BlockCompress(mzRaw, 3)
		require.NoError(t, err)
		intenBlock, err := codec.BlockCompress(intenRaw, 3)
		require.NoError(t, err)

		require.NoError(t, d.Submit(
			xmlBlock.Bytes, mzBlock.Bytes, intenBlock.Bytes,
			len(xmlRaw), len(mzRaw), len(intenRaw),
		))
	}
	require.NoError(t, d.Finish())

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, seen)
}

func TestDecompressorPropagatesBlockDecompressError(t *testing.T) {
	sink := func(DivisionResult) error { return nil }
	d := NewDecompressor(context.Background(), sink, WithConcurrency(2))
	require.NoError(t, d.Submit([]byte("not a zstd frame"), nil, nil, 10, 0, 0))
	err := d.Finish()
	assert.Error(t, err)
}
