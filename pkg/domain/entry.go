// Package domain defines the core performance entry types shared by the
// buffer, the recorder and the API surface.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryType identifies the timeline entry kind. All entries produced by
// this mechanism carry EntryTypeCustom.
type EntryType string

const (
	// EntryTypeCustom is the fixed entry type for caller-queued entries.
	EntryTypeCustom EntryType = "custom"
)

var (
	// ErrInvalidEntry is returned when an entry is missing required fields
	ErrInvalidEntry = errors.New("invalid entry")
)

// Entry is one recorded performance data point. Once constructed it is
// immutable: Detail is copied at construction so later mutation of the
// caller's bytes cannot reach the buffer.
type Entry struct {
	// EntryID is assigned at construction, not caller-controlled
	EntryID   string    `json:"entry_id"`
	Name      string    `json:"name"`
	EntryType EntryType `json:"entryType"`

	// StartTime and Duration are caller-supplied, monotonic clock domain
	// assumed. Duration may be zero or negative; neither is validated
	// against wall-clock.
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`

	// Detail is opaque. The buffer never inspects or mutates it.
	Detail json.RawMessage `json:"detail,omitempty"`

	// Recorded is the wall-clock arrival time, for operational logging
	// only. It does not participate in ordering or eviction.
	Recorded time.Time `json:"recorded"`
}

// NewEntry constructs an immutable entry. Name is required; StartTime and
// Duration are accepted unchanged, negative values included. Detail bytes
// are copied.
func NewEntry(name string, startTime, duration float64, detail json.RawMessage) (*Entry, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}

	var detailCopy json.RawMessage
	if len(detail) > 0 {
		detailCopy = make(json.RawMessage, len(detail))
		copy(detailCopy, detail)
	}

	return &Entry{
		EntryID:   uuid.New().String(),
		Name:      name,
		EntryType: EntryTypeCustom,
		StartTime: startTime,
		Duration:  duration,
		Detail:    detailCopy,
		Recorded:  time.Now(),
	}, nil
}

// Validate checks the invariants an accepted entry must hold.
func (e *Entry) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if e.EntryType != EntryTypeCustom {
		return fmt.Errorf("%w: unexpected entry type %q", ErrInvalidEntry, e.EntryType)
	}
	return nil
}
