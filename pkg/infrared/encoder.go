package infrared

import "fmt"

type encoderState int

const (
	encodeSilence encoderState = iota
	encodePreamble
	encodeBits
	encodeRepeat
)

// Encoder turns a message into edges, one per call of Encode.
// It is not safe for concurrent use.
type Encoder struct {
	desc     Descriptor
	protocol Protocol
	msg      Message
	bits     Bits
	state    encoderState
	// edges counts the edges emitted in the current state
	edges int
	// sent counts the bits emitted
	sent int
	// sum is the duration emitted since the start of the current frame
	sum    uint32
	toggle bool
}

// NewEncoder returns an encoder for protocol p.
func NewEncoder(p Protocol) (*Encoder, error) {
	d, ok := p.Family().Descriptor()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &Encoder{desc: d, protocol: p}, nil
}

// Reset prepares the encoder for a new key press.
// The message protocol must belong to the encoder's family.
func (e *Encoder) Reset(m Message) error {
	if m.Protocol.Family() != e.desc.Family {
		return fmt.Errorf("%w: %v on %v encoder", ErrProtocolMismatch, m.Protocol, e.protocol)
	}

	// RC5 and RC6 tell a new key press from a held one by the toggle bit
	e.toggle = !e.toggle

	msg, bits, err := payload(m, e.toggle)
	if err != nil {
		return err
	}

	e.msg, e.bits, e.protocol = msg, bits, m.Protocol
	e.state = encodeSilence
	e.edges, e.sent, e.sum = 0, 0, 0
	return nil
}

// Message returns the message being encoded with its fields masked to the wire widths.
func (e *Encoder) Message() Message { return e.msg }

// Carrier returns the carrier frequency in Hz and its duty cycle.
func (e *Encoder) Carrier() (uint32, float32) {
	return e.desc.Frequency, e.desc.DutyCycle
}

// Encode returns the next edge. done is true on the last edge of a frame.
// Calling Encode after done continues with a repeat frame or a replay of the
// full frame.
func (e *Encoder) Encode() (Edge, bool) {
	switch e.state {
	case encodeSilence:
		e.state = encodePreamble
		e.edges, e.sent, e.sum = 0, 0, 0
		return Edge{Level: false, Duration: e.desc.Silence}, false

	case encodePreamble:
		if e.desc.Preamble.Mark == 0 {
			e.state = encodeBits
			return e.Encode()
		}

		if e.edges == 0 {
			e.edges++
			return e.emit(Edge{Level: true, Duration: e.desc.Preamble.Mark}), false
		}
		e.edges = 0
		e.state = encodeBits
		return e.emit(Edge{Level: false, Duration: e.desc.Preamble.Space}), false

	case encodeBits:
		var edge Edge
		var done bool
		if e.desc.Coding == Manchester {
			edge, done = e.encodeManchester()
		} else {
			edge, done = e.encodePulseDistance()
		}
		e.emit(edge)

		if done {
			e.edges = 0
			if e.desc.hasRepeat() {
				e.state = encodeRepeat
			} else {
				e.state = encodeSilence
			}
		}
		return edge, done

	default:
		return e.encodeRepeat()
	}
}

func (e *Encoder) emit(edge Edge) Edge {
	e.sum += edge.Duration
	return edge
}

func (e *Encoder) bitTiming(i int) Timing {
	if e.bits.Bit(i) {
		return e.desc.Bit1
	}
	return e.desc.Bit0
}

// encodePulseDistance emits mark and space per bit. Distance coded protocols
// end with a stop mark, width coded ones on the mark of the last bit.
func (e *Encoder) encodePulseDistance() (Edge, bool) {
	widthCoded := e.desc.Bit1.Space == e.desc.Bit0.Space
	mark := e.edges%2 == 0
	e.edges++

	if !mark {
		if widthCoded {
			return Edge{Level: false, Duration: e.desc.Bit1.Space}, false
		}
		t := e.bitTiming(e.sent)
		e.sent++
		return Edge{Level: false, Duration: t.Space}, false
	}

	if e.sent == e.bits.Len() {
		return Edge{Level: true, Duration: e.desc.Bit1.Mark}, true
	}

	t := e.bitTiming(e.sent)
	if widthCoded {
		e.sent++
		return Edge{Level: true, Duration: t.Mark}, e.sent == e.bits.Len()
	}
	return Edge{Level: true, Duration: t.Mark}, false
}

// encodeManchester emits one half bit per call. The first half carries the
// bit level. The second half of a last bit starting with a mark is left to
// the following silence.
func (e *Encoder) encodeManchester() (Edge, bool) {
	bit := e.bits.Bit(e.sent)
	d := e.desc.Bit1.Mark * e.desc.halfWidth(e.sent)
	last := e.sent == e.bits.Len()-1

	if e.edges == 0 {
		if last && bit {
			e.sent++
			return Edge{Level: true, Duration: d}, true
		}
		e.edges = 1
		return Edge{Level: bit, Duration: d}, false
	}

	e.edges = 0
	e.sent++
	return Edge{Level: !bit, Duration: d}, last
}

// encodeRepeat emits the pause up to the repeat period followed by a repeat frame.
func (e *Encoder) encodeRepeat() (Edge, bool) {
	frame := e.desc.repeatFrame()

	if e.edges == 0 {
		pause := e.desc.Silence
		if e.sum < e.desc.RepeatPeriod {
			pause = e.desc.RepeatPeriod - e.sum
		}
		e.sum = 0
		e.edges = 1
		return Edge{Level: false, Duration: pause}, false
	}

	edge := e.emit(frame[e.edges-1])
	e.edges++
	if e.edges > len(frame) {
		e.edges = 0
		return edge, true
	}
	return edge, false
}
