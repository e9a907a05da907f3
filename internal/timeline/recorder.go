package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/perfline/perfline/pkg/domain"
	"go.uber.org/zap"
)

var (
	// ErrUnknownMark is returned by Measure when the start mark was never
	// recorded
	ErrUnknownMark = errors.New("unknown mark")
)

// Clock returns the current timestamp in milliseconds on the recorder's
// monotonic timeline. Injectable for tests.
type Clock func() float64

// Recorder implements mark/measure on top of an EntryBuffer. Mark times
// live in an explicit recorder-owned map, never in ambient state.
type Recorder struct {
	mu        sync.Mutex
	markTimes map[string]float64

	buffer *EntryBuffer
	clock  Clock
	logger *zap.Logger
}

// NewRecorder creates a recorder feeding the given buffer. A nil clock
// defaults to milliseconds since recorder creation, which keeps all
// timestamps in one monotonic domain.
func NewRecorder(buffer *EntryBuffer, clock Clock, logger *zap.Logger) *Recorder {
	if clock == nil {
		origin := time.Now()
		clock = func() float64 {
			return float64(time.Since(origin)) / float64(time.Millisecond)
		}
	}

	return &Recorder{
		markTimes: make(map[string]float64),
		buffer:    buffer,
		clock:     clock,
		logger:    logger,
	}
}

// Mark records the current time under name and queues a zero-duration
// entry. Re-marking an existing name overwrites its stored time.
func (r *Recorder) Mark(name string, detail json.RawMessage) (*domain.Entry, error) {
	now := r.clock()

	entry, err := domain.NewEntry(name, now, 0, detail)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.markTimes[name] = now
	r.mu.Unlock()

	r.buffer.Enqueue(entry)

	if r.logger != nil {
		r.logger.Debug("Recorded mark",
			zap.String("name", name),
			zap.Float64("start_time", now),
		)
	}
	return entry, nil
}

// Measure queues an entry spanning from the named start mark to now.
func (r *Recorder) Measure(name, startMark string, detail json.RawMessage) (*domain.Entry, error) {
	now := r.clock()

	r.mu.Lock()
	start, ok := r.markTimes[startMark]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMark, startMark)
	}

	entry, err := domain.NewEntry(name, start, now-start, detail)
	if err != nil {
		return nil, err
	}

	r.buffer.Enqueue(entry)

	if r.logger != nil {
		r.logger.Debug("Recorded measure",
			zap.String("name", name),
			zap.String("start_mark", startMark),
			zap.Float64("duration", entry.Duration),
		)
	}
	return entry, nil
}

// ClearMarks drops all stored mark times. Buffered entries are not
// affected.
func (r *Recorder) ClearMarks() {
	r.mu.Lock()
	r.markTimes = make(map[string]float64)
	r.mu.Unlock()
}
