//go:build linux
// +build linux

package raspberry

import (
	"fmt"
	"sync"

	"irkit/pkg/infrared"
	"irkit/pkg/port"

	"github.com/warthog618/gpio"
	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Line represents a single requested line.
type Line struct {
	gpiodLine *gpiod.Line
	// C receives the edge changes of the line
	C chan port.Event
}

// Open opens a GPIO character device, e.g. gpiochip0.
func Open(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewLine requests the line offset as input and watches both edges.
// The events are sent to channel C with the kernel timestamp; an event is
// dropped if the consumer falls behind by more than the channel buffer.
func (c *Chip) NewLine(offset int, bias string) (*Line, error) {
	var err error

	line := &Line{
		C: make(chan port.Event, eventBuffer)}

	handler := func(evt gpiod.LineEvent) {
		e := port.Event{Timestamp: evt.Timestamp, Type: port.FallingEdge}
		if evt.Type == gpiod.LineEventRisingEdge {
			e.Type = port.RisingEdge
		}

		select {
		case line.C <- e:
		default:
			debug.ErrorLog.Println("event buffer full, edge dropped")
		}
	}

	switch bias {
	case "pullup":
		line.gpiodLine, err = c.gpiodChip.RequestLine(offset, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		line.gpiodLine, err = c.gpiodChip.RequestLine(offset, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none", "":
		line.gpiodLine, err = c.gpiodChip.RequestLine(offset, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		return nil, fmt.Errorf("%w: bias %q", ErrInvalidParam, bias)
	}

	if err != nil {
		return nil, err
	}
	return line, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	close(l.C)
	return nil
}

// Transmitter gates an IR LED driver connected to a gpio pin.
type Transmitter struct {
	sync.Mutex
	pin *gpio.Pin
	// carrier is the frequency the driver modulates with, 0 if unknown
	carrier uint32
}

// OpenTransmitter maps the GPIO memory and configures the BCM pin p as output.
// carrier is the frequency of the LED driver in Hz.
func OpenTransmitter(p int, carrier uint32) (*Transmitter, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	pin := gpio.NewPin(p)
	pin.Output()
	pin.Low()
	return &Transmitter{pin: pin, carrier: carrier}, nil
}

// Send plays the signal. Calls are serialized.
func (t *Transmitter) Send(s infrared.Signal) error {
	t.Lock()
	defer t.Unlock()

	debug.DebugLog.Printf("sending %d edges on pin %d", len(s.Edges), t.pin.Pin())
	transmit(t.pin, t.carrier, s)
	return nil
}

// Close switches the LED off and unmaps GPIO memory.
func (t *Transmitter) Close() error {
	t.Lock()
	defer t.Unlock()

	t.pin.Low()
	return gpio.Close()
}
