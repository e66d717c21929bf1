// Package pipeline implements the bounded worker pool and heap-ordered
// sequencer shared by compression and decompression: many divisions are
// processed concurrently, but their output streams are always committed
// in division order regardless of completion order.
package pipeline

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrisagrams/mscompress/internal/codec"
	"github.com/chrisagrams/mscompress/internal/container"
	"github.com/chrisagrams/mscompress/internal/divide"
)

// Progress reports one correctly-ordered division having been committed.
type Progress struct {
	Duration   time.Duration
	Division   int
	Compressed int
	Original   int
}

// Option configures a Compressor or Decompressor.
type Option func(*options)

type options struct {
	concurrency int
	progressCh  chan<- Progress
}

// WithConcurrency sets the number of worker goroutines (default
// runtime.GOMAXPROCS(-1)).
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithProgress sets the channel progress reports are sent on.
func WithProgress(ch chan<- Progress) Option {
	return func(o *options) { o.progressCh = ch }
}

func resolveOptions(opts []Option) options {
	o := options{concurrency: runtime.GOMAXPROCS(-1)}
	for _, fn := range opts {
		fn(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// compressJob is one division's raw (transform-encoded) streams awaiting
// entropy compression.
type compressJob struct {
	order               int
	pos                 divide.Division
	level               int
	xmlRaw, mzRaw, intenRaw []byte

	err                          error
	xml, mz, inten               codec.Block
	duration                     time.Duration
}

// Compressor entropy-compresses each division's three streams in
// parallel and writes them to a container.Writer strictly in division
// order (§4.5 "parallel pipeline").
type Compressor struct {
	ctx     context.Context
	cw      *container.Writer
	workCh  chan *compressJob
	doneCh  chan *compressJob
	workWg  sync.WaitGroup
	doneWg  sync.WaitGroup
	order   int64
	heap    *compressHeap
	progressCh chan<- Progress

	mu      sync.Mutex
	firstErr error
}

// NewCompressor starts a Compressor's worker pool and sequencer. cw must
// not be written to by anything else until Finish returns.
func NewCompressor(ctx context.Context, cw *container.Writer, opts ...Option) *Compressor {
	o := resolveOptions(opts)
	c := &Compressor{
		ctx:        ctx,
		cw:         cw,
		workCh:     make(chan *compressJob, o.concurrency),
		doneCh:     make(chan *compressJob, o.concurrency),
		heap:       &compressHeap{},
		progressCh: o.progressCh,
	}
	heap.Init(c.heap)
	c.workWg.Add(o.concurrency)
	for i := 0; i < o.concurrency; i++ {
		go func() {
			defer c.workWg.Done()
			c.worker()
		}()
	}
	c.doneWg.Add(1)
	go func() {
		defer c.doneWg.Done()
		c.assemble()
	}()
	return c
}

func (c *Compressor) worker() {
	for {
		select {
		case job, ok := <-c.workCh:
			if !ok {
				return
			}
			start := time.Now()
			job.xml, job.err = codec.BlockCompress(job.xmlRaw, job.level)
			if job.err == nil {
				job.mz, job.err = codec.BlockCompress(job.mzRaw, job.level)
			}
			if job.err == nil {
				job.inten, job.err = codec.BlockCompress(job.intenRaw, job.level)
			}
			job.duration = time.Since(start)
			select {
			case c.doneCh <- job:
			case <-c.ctx.Done():
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Compressor) assemble() {
	expected := 0
	for {
		select {
		case job, ok := <-c.doneCh:
			if !ok {
				return
			}
			heap.Push(c.heap, job)
			for c.heap.Len() > 0 && (*c.heap)[0].order == expected {
				next := heap.Pop(c.heap).(*compressJob)
				expected++
				if next.err != nil {
					c.setErr(fmt.Errorf("pipeline: division %d: %w", next.order, next.err))
					continue
				}
				err := c.cw.WriteDivision(container.DivisionBlocks{
					XML:           next.xml.Bytes,
					Mz:            next.mz.Bytes,
					Inten:         next.inten.Bytes,
					XMLOriginal:   len(next.xmlRaw),
					MzOriginal:    len(next.mzRaw),
					IntenOriginal: len(next.intenRaw),
					Positions:     next.pos,
				})
				if err != nil {
					c.setErr(err)
					continue
				}
				if c.progressCh != nil {
					c.progressCh <- Progress{
						Duration:   next.duration,
						Division:   next.order,
						Compressed: next.xml.CompressedSize + next.mz.CompressedSize + next.inten.CompressedSize,
						Original:   len(next.xmlRaw) + len(next.mzRaw) + len(next.intenRaw),
					}
				}
			}
		case <-c.ctx.Done():
			c.setErr(c.ctx.Err())
			return
		}
	}
}

func (c *Compressor) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firstErr == nil {
		c.firstErr = err
	}
}

// Submit enqueues one division's transform-encoded raw streams for
// compression. Submit assigns each call the next sequence number and the
// sequencer commits divisions in that order, so callers must call Submit
// in division order.
func (c *Compressor) Submit(pos divide.Division, level int, xmlRaw, mzRaw, intenRaw []byte) error {
	order := int(atomic.AddInt64(&c.order, 1)) - 1
	select {
	case c.workCh <- &compressJob{order: order, pos: pos, level: level, xmlRaw: xmlRaw, mzRaw: mzRaw, intenRaw: intenRaw}:
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	return nil
}

// Finish waits for all outstanding work to complete and commit, in order,
// and returns the first error encountered, if any.
func (c *Compressor) Finish() error {
	close(c.workCh)
	c.workWg.Wait()
	close(c.doneCh)
	c.doneWg.Wait()
	return c.firstErr
}

type compressHeap []*compressJob

func (h compressHeap) Len() int            { return len(h) }
func (h compressHeap) Less(i, j int) bool  { return h[i].order < h[j].order }
func (h compressHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *compressHeap) Push(x interface{}) { *h = append(*h, x.(*compressJob)) }
func (h *compressHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
