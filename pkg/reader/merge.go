package reader

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ccollicutt/logreader/pkg/record"
)

// TimeField is the record key MergedReader orders by.
const TimeField = "time"

// MergedReader combines several Readers into a single stream ordered by
// the time field, oldest first with zone offsets applied. Records with
// equal instants keep reader order. This gives one timeline across e.g.
// per-vhost access logs written in different zones.
type MergedReader struct {
	readers []*Reader
	heap    *recordHeap
	pending []int
	started bool
	seq     int
	current string
	source  string
}

// NewMergedReader creates a MergedReader over readers. Every reader's plan
// must declare a %t field.
func NewMergedReader(readers ...*Reader) *MergedReader {
	return &MergedReader{
		readers: readers,
		heap:    &recordHeap{},
	}
}

// Next returns the oldest pending record across all readers, or io.EOF
// when all are exhausted. An error from one reader is returned as is; that
// reader stays in rotation and its next line is pulled on the following call.
func (m *MergedReader) Next(ctx context.Context) (record.Record, error) {
	if !m.started {
		m.started = true
		heap.Init(m.heap)
		for i := range m.readers {
			m.pending = append(m.pending, i)
		}
	}

	// Refill from readers whose last record was handed out.
	for len(m.pending) > 0 {
		idx := m.pending[0]
		r := m.readers[idx]
		rec, err := r.Next(ctx)
		if err == io.EOF {
			m.pending = m.pending[1:]
			continue
		}
		if err != nil {
			m.current, m.source = r.CurrentLine(), r.Name()
			return nil, err
		}
		ts, ok := rec.Time(TimeField)
		if !ok {
			m.current, m.source = r.CurrentLine(), r.Name()
			return nil, fmt.Errorf("%s: record has no %q timestamp field", r.Name(), TimeField)
		}
		heap.Push(m.heap, &heapItem{
			rec:       rec,
			at:        ts.Instant(),
			line:      r.CurrentLine(),
			readerIdx: idx,
			seq:       m.seq,
		})
		m.seq++
		m.pending = m.pending[1:]
	}

	if m.heap.Len() == 0 {
		return nil, io.EOF
	}

	item := heap.Pop(m.heap).(*heapItem)
	m.current = item.line
	m.source = m.readers[item.readerIdx].Name()
	m.pending = append(m.pending, item.readerIdx)
	return item.rec, nil
}

// CurrentLine returns the raw line of the last record or error returned.
func (m *MergedReader) CurrentLine() string {
	return m.current
}

// CurrentSource names the reader the last record or error came from.
func (m *MergedReader) CurrentSource() string {
	return m.source
}

// Close releases all readers.
func (m *MergedReader) Close() error {
	var errs []error
	for _, r := range m.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// heapItem wraps a record with its reader index for the priority queue.
type heapItem struct {
	rec       record.Record
	at        time.Time
	line      string
	readerIdx int
	seq       int
}

// recordHeap implements heap.Interface for time-ordered merging.
type recordHeap []*heapItem

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	if h[i].readerIdx != h[j].readerIdx {
		return h[i].readerIdx < h[j].readerIdx
	}
	return h[i].seq < h[j].seq
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
