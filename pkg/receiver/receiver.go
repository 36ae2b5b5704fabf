// Package receiver decodes the edges of a capture source in the background.
package receiver

import (
	"context"
	"errors"
	"sync"
	"time"

	"irkit/pkg/infrared"
	"irkit/pkg/port"

	"github.com/womat/debug"
)

var ErrClosed = errors.New("receiver: closed")

// maxBurst is the maximum number of edges recorded for a learned burst.
const maxBurst = 1024

// Burst is one captured signal, the edges between two flushes.
type Burst struct {
	Edges []infrared.Edge
	// Message is the first message decoded from the edges, nil if none
	Message *infrared.Message
}

// Receiver feeds captured edges into a decode pool and publishes the
// decoded messages on channel C.
type Receiver struct {
	sync.Mutex
	pool *infrared.Pool
	last infrared.Message
	ok   bool

	// idle is the time without edges after which the pool is flushed
	idle time.Duration
	// C is the channel to send the decoded messages
	C chan infrared.Message

	// rx is the channel to receive the edges
	rx <-chan infrared.Edge
	// listen registers a listener for the next burst
	listen chan chan Burst

	// learning state, owned by run
	listeners []chan Burst
	recording bool
	inBurst   bool
	burst     Burst
	// quit is the channel to stop the receiver
	quit chan struct{}
	// done signals that run is stopped
	done chan struct{}
}

// New starts decoding the edges of rx.
// A flush is injected when no edge arrived within idle; 0 disables it.
func New(rx <-chan infrared.Edge, idle time.Duration) *Receiver {
	r := &Receiver{
		pool: infrared.NewPool(),
		idle: idle,
		C:    make(chan infrared.Message, 16),
		rx:     rx,
		listen: make(chan chan Burst),
		quit:   make(chan struct{}),
		done: make(chan struct{}),
	}

	go r.run()
	return r
}

// Close stops decoding.
func (r *Receiver) Close() error {
	close(r.quit)

	// wait until run() is terminated
	<-r.done
	return nil
}

// Listen returns a channel receiving the next complete burst. A burst that is
// in progress when Listen is called is skipped.
func (r *Receiver) Listen() (<-chan Burst, error) {
	c := make(chan Burst, 1)
	select {
	case r.listen <- c:
		return c, nil
	case <-r.done:
		return nil, ErrClosed
	}
}

// Learn waits for the next complete burst.
func (r *Receiver) Learn(ctx context.Context) (Burst, error) {
	c, err := r.Listen()
	if err != nil {
		return Burst{}, err
	}

	select {
	case b := <-c:
		return b, nil
	case <-r.done:
		return Burst{}, ErrClosed
	case <-ctx.Done():
		return Burst{}, ctx.Err()
	}
}

// Last returns the last decoded message.
func (r *Receiver) Last() (infrared.Message, bool) {
	r.Lock()
	defer r.Unlock()
	return r.last, r.ok
}

// run receives edges and sends them to the decode pool
func (r *Receiver) run() {
	defer close(r.done)
	defer close(r.C)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	pending := false

	for {
		select {
		case <-r.quit:
			return

		case c := <-r.listen:
			r.listeners = append(r.listeners, c)
			if !r.inBurst {
				r.recording = true
			}

		case <-timer.C:
			debug.TraceLog.Print("receiver idle, flush")
			pending = false
			if !r.decode(infrared.Edge{}) {
				return
			}

		case e, open := <-r.rx:
			if !open {
				if pending {
					r.decode(infrared.Edge{})
				}
				return
			}

			pending = e.Duration != 0
			if r.idle > 0 {
				stopTimer(timer)
				if pending {
					timer.Reset(r.idle)
				}
			}

			if !r.decode(e) {
				return
			}
		}
	}
}

// decode feeds e to the pool and publishes a decoded message.
// It returns false if the receiver was closed while publishing.
func (r *Receiver) decode(e infrared.Edge) bool {
	r.record(e)
	m := r.pool.Decode(e.Level, e.Duration)
	if e.Duration == 0 {
		defer r.deliver()
	}
	if m == nil {
		return true
	}

	if r.recording && r.burst.Message == nil {
		msg := *m
		r.burst.Message = &msg
	}

	debug.InfoLog.Printf("received %v", m)
	r.Lock()
	r.last, r.ok = *m, true
	r.Unlock()

	select {
	case r.C <- *m:
		return true
	case <-r.quit:
		return false
	}
}

// record appends e to the burst of the listeners.
func (r *Receiver) record(e infrared.Edge) {
	if e.Duration == 0 {
		return
	}
	r.inBurst = true
	if !r.recording || len(r.burst.Edges) >= maxBurst {
		return
	}
	// the space before the first mark is the idle gap
	if len(r.burst.Edges) == 0 && !e.Level {
		return
	}
	r.burst.Edges = append(r.burst.Edges, e)
}

// deliver ends the current burst and sends it to the listeners.
func (r *Receiver) deliver() {
	if r.recording && len(r.burst.Edges) > 0 {
		b := r.burst
		b.Edges = infrared.Merge(b.Edges)
		debug.DebugLog.Printf("burst of %d edges to %d listeners", len(b.Edges), len(r.listeners))
		for _, c := range r.listeners {
			c <- b
		}
		r.listeners = nil
	}

	r.burst = Burst{}
	r.inBurst = false
	r.recording = len(r.listeners) > 0
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// FromEvents converts line events into edges until events is closed.
func FromEvents(events <-chan port.Event, activeLow bool) <-chan infrared.Edge {
	c := make(chan infrared.Edge, cap(events))
	t := port.NewTracker(activeLow)

	go func() {
		defer close(c)
		for evt := range events {
			if mark, d, ok := t.Edge(evt); ok {
				c <- infrared.Edge{Level: mark, Duration: d}
			}
		}
	}()
	return c
}
