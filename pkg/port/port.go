// Package port holds the definition of a physical port and turns its level
// changes into timed infrared edges.
package port

import (
	"math"
	"time"
)

// EventType indicates the type of change to the line level.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high event.
	RisingEdge
	// FallingEdge indicates a high to low event.
	FallingEdge
)

// Event is a level change of a line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

// Tracker measures the time between line events.
// Infrared receiver modules pull their output low while they detect the
// carrier, so for active low lines a low level is reported as mark.
type Tracker struct {
	ActiveLow bool

	last    time.Duration
	started bool
}

// NewTracker returns a tracker for a line with the given polarity.
func NewTracker(activeLow bool) *Tracker {
	return &Tracker{ActiveLow: activeLow}
}

// Edge returns the level and the length in µs of the interval ended by evt.
// ok is false for the first event, which only starts the measurement.
func (t *Tracker) Edge(evt Event) (mark bool, duration uint32, ok bool) {
	if !t.started {
		t.started = true
		t.last = evt.Timestamp
		return false, 0, false
	}

	d := evt.Timestamp - t.last
	t.last = evt.Timestamp
	if d < 0 {
		return false, 0, false
	}

	// the line was low before a rising edge
	high := evt.Type == FallingEdge
	mark = high != t.ActiveLow

	us := d.Microseconds()
	switch {
	case us > math.MaxUint32:
		us = math.MaxUint32
	case us == 0:
		// 0 is reserved as flush marker
		us = 1
	}
	return mark, uint32(us), true
}

// Reset restarts the measurement with the next event.
func (t *Tracker) Reset() {
	t.started = false
	t.last = 0
}
