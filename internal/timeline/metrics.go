package timeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// bufferMetrics wraps the OTEL instruments for the entry buffer.
// Metrics are optional: failure to create an instrument is logged at
// Debug and the instrument stays nil.
type bufferMetrics struct {
	enqueuedCounter metric.Int64Counter
	evictedCounter  metric.Int64Counter
	drainedCounter  metric.Int64Counter
	droppedCounter  metric.Int64Counter
}

func newBufferMetrics(logger *zap.Logger) *bufferMetrics {
	meter := otel.Meter("entry_buffer")
	m := &bufferMetrics{}
	var err error

	m.enqueuedCounter, err = meter.Int64Counter(
		"entry_buffer_enqueued_total",
		metric.WithDescription("Total entries enqueued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create enqueued counter", zap.Error(err))
		}
		m.enqueuedCounter = nil
	}

	m.evictedCounter, err = meter.Int64Counter(
		"entry_buffer_evicted_total",
		metric.WithDescription("Total entries evicted at capacity"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create evicted counter", zap.Error(err))
		}
		m.evictedCounter = nil
	}

	m.drainedCounter, err = meter.Int64Counter(
		"entry_buffer_drained_total",
		metric.WithDescription("Total entries returned by drains"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create drained counter", zap.Error(err))
		}
		m.drainedCounter = nil
	}

	m.droppedCounter, err = meter.Int64Counter(
		"entry_buffer_dropped_total",
		metric.WithDescription("Total nil or rejected entries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create dropped counter", zap.Error(err))
		}
		m.droppedCounter = nil
	}

	return m
}

func (m *bufferMetrics) recordEnqueued() {
	if m.enqueuedCounter != nil {
		m.enqueuedCounter.Add(context.Background(), 1)
	}
}

func (m *bufferMetrics) recordEvicted() {
	if m.evictedCounter != nil {
		m.evictedCounter.Add(context.Background(), 1)
	}
}

func (m *bufferMetrics) recordDrained(count int) {
	if m.drainedCounter != nil && count > 0 {
		m.drainedCounter.Add(context.Background(), int64(count))
	}
}

func (m *bufferMetrics) recordDropped() {
	if m.droppedCounter != nil {
		m.droppedCounter.Add(context.Background(), 1)
	}
}
