package infrared

import (
	"fmt"

	"github.com/womat/debug"
)

// historySize bounds the edges kept for preamble and repeat matching.
const historySize = 200

// State is the decoding state of a session.
type State int

const (
	// WaitPreamble searches the edge history for the start of a frame.
	WaitPreamble State = iota
	// Decoding collects the bits of a frame.
	Decoding
	// ProcessRepeat waits for repeat frames of the last message.
	ProcessRepeat
)

func (s State) String() string {
	switch s {
	case WaitPreamble:
		return "WaitPreamble"
	case Decoding:
		return "Decoding"
	case ProcessRepeat:
		return "ProcessRepeat"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// status is the outcome of one decoding step.
type status int

const (
	// statusWait needs more edges.
	statusWait status = iota
	// statusNext moved to another state which should look at the history.
	statusNext
	// statusReady holds a complete frame.
	statusReady
	// statusRepeat confirmed a repeat frame.
	statusRepeat
	// statusError discards the frame.
	statusError
)

// manchesterState tracks the half periods of the current bit.
type manchesterState struct {
	units uint32
	first bool
}

// toggleCarry remembers the last RC5/RC6 frame to tell a held key from a new press.
type toggleCarry struct {
	valid  bool
	toggle bool
	msg    Message
}

// Decoder recognizes the protocols of one family in a stream of edges.
// It is not safe for concurrent use.
type Decoder struct {
	desc    Descriptor
	state   State
	history []Edge
	bits    Bits
	half    manchesterState
	msg     Message
	carry   toggleCarry
	level   bool
	primed  bool
}

// NewDecoder returns a decode session for descriptor d.
func NewDecoder(d Descriptor) (*Decoder, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	d.BitLengths = append([]int(nil), d.BitLengths...)
	return &Decoder{
		desc:    d,
		history: make([]Edge, 0, historySize),
	}, nil
}

// NewFamilyDecoder returns a decode session for family f.
func NewFamilyDecoder(f Family) (*Decoder, error) {
	d, ok := f.Descriptor()
	if !ok {
		return nil, fmt.Errorf("%w: family %v", ErrUnknownProtocol, f)
	}
	return NewDecoder(d)
}

func (d *Decoder) Family() Family { return d.desc.Family }

func (d *Decoder) State() State { return d.state }

// Reset abandons the current frame and forgets the previous message.
func (d *Decoder) Reset() {
	d.resetState()
	d.history = d.history[:0]
	d.carry = toggleCarry{}
	d.primed = false
}

// Decode consumes one edge and returns a message when it completes a frame or a
// repeat. A duration of 0 flushes: a frame holding a valid number of bits is
// interpreted and the session is reset.
func (d *Decoder) Decode(level bool, duration uint32) *Message {
	if duration == 0 {
		return d.flush()
	}

	if d.primed && level == d.level {
		debug.TraceLog.Printf("%v: edge level did not alternate, reset", d.desc.Family)
		d.resetState()
		d.history = d.history[:0]
	}
	d.level, d.primed = level, true

	if len(d.history) == historySize {
		d.resetState()
		d.history = d.history[:0]
	}
	d.history = append(d.history, Edge{Level: level, Duration: duration})

	return d.process()
}

func (d *Decoder) process() *Message {
	for {
		var st status
		switch d.state {
		case WaitPreamble:
			st = d.waitPreamble()
		case Decoding:
			st = d.decodeBits()
		case ProcessRepeat:
			st = d.processRepeat(false)
		}

		switch st {
		case statusWait:
			return nil
		case statusNext:
			continue
		case statusError:
			d.resetState()
		case statusReady:
			if m := d.complete(); m != nil {
				return m
			}
		case statusRepeat:
			return d.repeated()
		}
	}
}

func (d *Decoder) flush() *Message {
	var m *Message

	switch d.state {
	case Decoding:
		if d.finishBit() && d.desc.validLength(d.bits.Len()) {
			m = d.complete()
		}
	case ProcessRepeat:
		if d.processRepeat(true) == statusRepeat {
			m = d.repeated()
		}
	}

	d.resetState()
	d.history = d.history[:0]
	d.primed = false
	return m
}

// complete interprets the collected bits.
func (d *Decoder) complete() *Message {
	n := d.bits.Len()
	msg, ok := d.interpret()
	d.bits.Reset()
	d.half = manchesterState{}

	if !ok {
		debug.TraceLog.Printf("%v: frame of %d bits rejected", d.desc.Family, n)
		d.resetState()
		return nil
	}

	d.msg = msg
	if d.desc.hasRepeat() {
		d.state = ProcessRepeat
	} else {
		d.state = WaitPreamble
	}

	m := d.msg
	return &m
}

func (d *Decoder) repeated() *Message {
	d.msg.Repeat = true
	m := d.msg
	return &m
}

// resetState returns to WaitPreamble keeping the history and the toggle carry.
func (d *Decoder) resetState() {
	d.state = WaitPreamble
	d.bits.Reset()
	d.half = manchesterState{}

	if d.desc.Preamble.Mark == 0 && len(d.history) > 0 {
		d.consume(1)
	}
}

func (d *Decoder) consume(n int) {
	if n > len(d.history) {
		n = len(d.history)
	}
	d.history = append(d.history[:0], d.history[n:]...)
}

func (d *Decoder) startBits() status {
	d.bits.Reset()
	d.half = manchesterState{}
	d.state = Decoding
	return statusNext
}

func (d *Decoder) waitPreamble() status {
	for len(d.history) > 0 && !d.history[0].Level {
		d.consume(1)
	}

	if d.desc.Preamble.Mark == 0 {
		if len(d.history) == 0 {
			return statusWait
		}
		return d.startBits()
	}

	for len(d.history) >= 2 {
		mark, space := d.history[0], d.history[1]
		d.consume(2)

		if Within(mark.Duration, d.desc.Preamble.Mark, d.desc.PreambleTolerance) &&
			Within(space.Duration, d.desc.Preamble.Space, d.desc.PreambleTolerance) {
			return d.startBits()
		}
	}
	return statusWait
}

func (d *Decoder) decodeBits() status {
	limit := d.desc.MaxBitLength()

	for len(d.history) > 0 {
		e := d.history[0]

		if d.desc.MinSplitTime > 0 && !e.Level {
			if e.Duration > d.desc.MinSplitTime {
				// the split space stays in the history as pause of a repeat frame
				if d.finishBit() && d.desc.validLength(d.bits.Len()) {
					return statusReady
				}
				return statusError
			}
			if d.bits.Len() == limit {
				return statusError
			}
		}

		var ok bool
		if d.desc.Coding == Manchester {
			ok = d.decodeManchester(e)
		} else {
			ok = d.decodePulseDistance(e)
		}
		if !ok {
			return statusError
		}
		d.consume(1)

		if d.desc.MinSplitTime == 0 && e.Level && d.bits.Len() == limit && d.half.units == 0 {
			return statusReady
		}
	}
	return statusWait
}

// decodePulseDistance matches the edge carrying the bit value against the bit
// timings and the other edge against its fixed timing.
func (d *Decoder) decodePulseDistance(e Edge) bool {
	equalMarks := d.desc.Bit1.Mark == d.desc.Bit0.Mark
	analyze := e.Level != equalMarks

	if !analyze {
		companion := d.desc.Bit1.Space
		if equalMarks {
			companion = d.desc.Bit1.Mark
		}
		return Within(e.Duration, companion, d.desc.BitTolerance)
	}

	one, zero := d.desc.Bit1.Space, d.desc.Bit0.Space
	if e.Level {
		one, zero = d.desc.Bit1.Mark, d.desc.Bit0.Mark
	}

	if d.bits.Len() >= d.desc.MaxBitLength() {
		return false
	}

	switch {
	case Within(e.Duration, one, d.desc.BitTolerance):
		return d.bits.Push(true) == nil
	case Within(e.Duration, zero, d.desc.BitTolerance):
		return d.bits.Push(false) == nil
	default:
		return false
	}
}

// decodeManchester splits the edge into half periods and assigns them to bits.
func (d *Decoder) decodeManchester(e Edge) bool {
	t := d.desc.Bit1.Mark
	var n uint32
	for k := uint32(1); k <= 3; k++ {
		if Within(e.Duration, k*t, d.desc.BitTolerance) {
			n = k
			break
		}
	}
	if n == 0 {
		return false
	}

	if d.desc.StartFromSpace && d.bits.Len() == 0 && d.half.units == 0 && e.Level {
		d.half = manchesterState{units: 1, first: false}
	}

	limit := d.desc.MaxBitLength()
	for i := uint32(0); i < n; i++ {
		if d.bits.Len() >= limit {
			return false
		}

		hw := d.desc.halfWidth(d.bits.Len())
		switch {
		case d.half.units == 0:
			d.half.first = e.Level
		case d.half.units < hw:
			if e.Level != d.half.first {
				return false
			}
		default:
			if e.Level == d.half.first {
				return false
			}
		}

		d.half.units++
		if d.half.units == 2*hw {
			if d.bits.Push(d.half.first) != nil {
				return false
			}
			d.half = manchesterState{}
		}
	}
	return true
}

// finishBit completes a last Manchester bit whose second half merged into the
// following space.
func (d *Decoder) finishBit() bool {
	if d.desc.Coding != Manchester || d.half.units == 0 {
		return true
	}

	if d.half.units == d.desc.halfWidth(d.bits.Len()) && d.half.first {
		if d.bits.Push(true) != nil {
			return false
		}
		d.half = manchesterState{}
		return true
	}
	return false
}

// processRepeat matches a pause, the repeat frame and a closing space. With
// flush the closing space is not required.
func (d *Decoder) processRepeat(flush bool) status {
	frame := d.desc.repeatFrame()

	for i, e := range d.history {
		switch {
		case i == 0:
			if e.Level || !Within(e.Duration, repeatPause, repeatPauseTolerance) {
				return statusError
			}
		case i <= len(frame):
			want := frame[i-1]
			tol := d.desc.BitTolerance
			if i <= 2 {
				tol = d.desc.PreambleTolerance
			}
			if e.Level != want.Level || !Within(e.Duration, want.Duration, tol) {
				return statusError
			}
		default:
			if e.Level || e.Duration <= d.desc.MinSplitTime {
				return statusError
			}
			d.consume(len(frame) + 1)
			return statusRepeat
		}
	}

	if flush && len(d.history) == len(frame)+1 {
		d.consume(len(frame) + 1)
		return statusRepeat
	}
	return statusWait
}
