package pipeline

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrisagrams/mscompress/internal/codec"
)

// DivisionResult is one division's decompressed (but still
// transform-encoded) raw streams, delivered to a Sink in division order.
type DivisionResult struct {
	Division int
	XMLRaw   []byte
	MzRaw    []byte
	IntenRaw []byte
}

// Sink receives each division's decompressed streams strictly in
// division order.
type Sink func(DivisionResult) error

type decompressJob struct {
	order int

	xmlComp, mzComp, intenComp       []byte
	xmlOriginal, mzOriginal, intenOriginal int

	err                        error
	xmlRaw, mzRaw, intenRaw    []byte
	duration                   time.Duration
}

// Decompressor entropy-decompresses each division's three streams in
// parallel and delivers them to a Sink strictly in division order.
type Decompressor struct {
	ctx    context.Context
	sink   Sink
	workCh chan *decompressJob
	doneCh chan *decompressJob
	workWg sync.WaitGroup
	doneWg sync.WaitGroup
	order  int64
	heap   *decompressHeap

	progressCh chan<- Progress

	mu       sync.Mutex
	firstErr error
}

// NewDecompressor starts a Decompressor's worker pool and sequencer.
func NewDecompressor(ctx context.Context, sink Sink, opts ...Option) *Decompressor {
	o := resolveOptions(opts)
	d := &Decompressor{
		ctx:    ctx,
		sink:   sink,
		workCh: make(chan *decompressJob, o.concurrency),
		doneCh: make(chan *decompressJob, o.concurrency),
		heap:   &decompressHeap{},

		progressCh: o.progressCh,
	}
	heap.Init(d.heap)
	d.workWg.Add(o.concurrency)
	for i := 0; i < o.concurrency; i++ {
		go func() {
			defer d.workWg.Done()
			d.worker()
		}()
	}
	d.doneWg.Add(1)
	go func() {
		defer d.doneWg.Done()
		d.assemble()
	}()
	return d
}

func (d *Decompressor) worker() {
	for {
		select {
		case job, ok := <-d.workCh:
			if !ok {
				return
			}
			start := time.Now()
			job.xmlRaw, job.err = codec.BlockDecompress(job.xmlComp, job.xmlOriginal)
			if job.err == nil {
				job.mzRaw, job.err = codec.BlockDecompress(job.mzComp, job.mzOriginal)
			}
			if job.err == nil {
				job.intenRaw, job.err = codec.BlockDecompress(job.intenComp, job.intenOriginal)
			}
			job.duration = time.Since(start)
			select {
			case d.doneCh <- job:
			case <-d.ctx.Done():
			}
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Decompressor) assemble() {
	expected := 0
	for {
		select {
		case job, ok := <-d.doneCh:
			if !ok {
				return
			}
			heap.Push(d.heap, job)
			for d.heap.Len() > 0 && (*d.heap)[0].order == expected {
				next := heap.Pop(d.heap).(*decompressJob)
				expected++
				if next.err != nil {
					d.setErr(fmt.Errorf("pipeline: division %d: %w", next.order, next.err))
					continue
				}
				if err := d.sink(DivisionResult{
					Division: next.order,
					XMLRaw:   next.xmlRaw,
					MzRaw:    next.mzRaw,
					IntenRaw: next.intenRaw,
				}); err != nil {
					d.setErr(err)
					continue
				}
				if d.progressCh != nil {
					d.progressCh <- Progress{
						Duration:   next.duration,
						Division:   next.order,
						Compressed: len(next.xmlComp) + len(next.mzComp) + len(next.intenComp),
						Original:   len(next.xmlRaw) + len(next.mzRaw) + len(next.intenRaw),
					}
				}
			}
		case <-d.ctx.Done():
			d.setErr(d.ctx.Err())
			return
		}
	}
}

func (d *Decompressor) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.firstErr == nil {
		d.firstErr = err
	}
}

// Submit enqueues one division's compressed streams for decompression.
// Divisions must be submitted in division order, matching how Reader
// exposes them (§4.7's division-ordered tables).
func (d *Decompressor) Submit(xmlComp, mzComp, intenComp []byte, xmlOriginal, mzOriginal, intenOriginal int) error {
	order := int(atomic.AddInt64(&d.order, 1)) - 1
	select {
	case d.workCh <- &decompressJob{
		order:          order,
		xmlComp:        xmlComp,
		mzComp:         mzComp,
		intenComp:      intenComp,
		xmlOriginal:    xmlOriginal,
		mzOriginal:     mzOriginal,
		intenOriginal:  intenOriginal,
	}:
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
	return nil
}

// Finish waits for all outstanding work to complete and commit, in
// order, and returns the first error encountered, if any.
func (d *Decompressor) Finish() error {
	close(d.workCh)
	d.workWg.Wait()
	close(d.doneCh)
	d.doneWg.Wait()
	return d.firstErr
}

type decompressHeap []*decompressJob

func (h decompressHeap) Len() int            { return len(h) }
func (h decompressHeap) Less(i, j int) bool  { return h[i].order < h[j].order }
func (h decompressHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *decompressHeap) Push(x interface{}) { *h = append(*h, x.(*decompressJob)) }
func (h *decompressHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
