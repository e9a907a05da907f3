// Package timeline implements the bounded entry buffer and the
// mark/measure recorder that feeds it.
package timeline

import (
	"sync"
	"sync/atomic"

	"github.com/perfline/perfline/pkg/domain"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity matches the "buffered until load, up to 100 events"
	// policy of the queueEntry proposal.
	DefaultCapacity = 100
)

// EntryBuffer holds entries in arrival order up to a fixed capacity.
// When full, the oldest entry is dropped silently; overflow is never an
// error. A single mutex guards the sequence; no operation blocks.
type EntryBuffer struct {
	mu       sync.Mutex
	entries  []*domain.Entry
	capacity int

	// Statistics tracking (atomic for cheap reads outside the lock)
	enqueued atomic.Int64
	evicted  atomic.Int64
	drained  atomic.Int64
	dropped  atomic.Int64

	logger  *zap.Logger
	metrics *bufferMetrics
}

// BufferStats is a point-in-time snapshot of buffer counters.
type BufferStats struct {
	Capacity    int     `json:"capacity"`
	Buffered    int     `json:"buffered"`
	Enqueued    int64   `json:"enqueued_total"`
	Evicted     int64   `json:"evicted_total"`
	Drained     int64   `json:"drained_total"`
	Dropped     int64   `json:"dropped_total"`
	Utilization float64 `json:"utilization_percent"`
}

// NewEntryBuffer creates a buffer with the given capacity. Zero or
// negative capacity falls back to DefaultCapacity.
func NewEntryBuffer(capacity int, logger *zap.Logger) *EntryBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &EntryBuffer{
		entries:  make([]*domain.Entry, 0, capacity),
		capacity: capacity,
		logger:   logger,
		metrics:  newBufferMetrics(logger),
	}
}

// Enqueue appends an entry in arrival order. If the buffer is at
// capacity the oldest entry is evicted first. Nil entries are ignored
// and counted as dropped.
func (b *EntryBuffer) Enqueue(entry *domain.Entry) {
	if entry == nil {
		b.dropped.Add(1)
		b.metrics.recordDropped()
		return
	}

	b.mu.Lock()
	var evicted *domain.Entry
	if len(b.entries) >= b.capacity {
		evicted = b.entries[0]
		// Shift rather than reslice so the backing array does not pin
		// evicted entries
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = entry
	} else {
		b.entries = append(b.entries, entry)
	}
	b.mu.Unlock()

	b.enqueued.Add(1)
	b.metrics.recordEnqueued()

	if evicted != nil {
		b.evicted.Add(1)
		b.metrics.recordEvicted()
		// Sample eviction logs the way ring buffers sample overwrite
		// warnings; per-entry logging at capacity would be noise
		if b.logger != nil && b.evicted.Load()%100 == 1 {
			b.logger.Debug("Entry buffer at capacity, evicting oldest",
				zap.String("evicted_name", evicted.Name),
				zap.Int64("evicted_total", b.evicted.Load()),
				zap.Int("capacity", b.capacity),
			)
		}
	}
}

// Drain returns all buffered entries in arrival order and clears the
// buffer. Calling Drain again immediately returns an empty slice.
func (b *EntryBuffer) Drain() []*domain.Entry {
	b.mu.Lock()
	entries := b.entries
	b.entries = make([]*domain.Entry, 0, b.capacity)
	b.mu.Unlock()

	b.drained.Add(int64(len(entries)))
	b.metrics.recordDrained(len(entries))
	return entries
}

// Peek returns a copy of the current entries in arrival order without
// clearing. Callers cannot perturb buffer state through the result.
func (b *EntryBuffer) Peek() []*domain.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]*domain.Entry, len(b.entries))
	copy(entries, b.entries)
	return entries
}

// Len returns the current number of buffered entries.
func (b *EntryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Capacity returns the configured maximum entry count.
func (b *EntryBuffer) Capacity() int {
	return b.capacity
}

// Stats returns a snapshot of buffer counters.
func (b *EntryBuffer) Stats() BufferStats {
	b.mu.Lock()
	buffered := len(b.entries)
	b.mu.Unlock()

	return BufferStats{
		Capacity:    b.capacity,
		Buffered:    buffered,
		Enqueued:    b.enqueued.Load(),
		Evicted:     b.evicted.Load(),
		Drained:     b.drained.Load(),
		Dropped:     b.dropped.Load(),
		Utilization: float64(buffered) / float64(b.capacity) * 100,
	}
}
