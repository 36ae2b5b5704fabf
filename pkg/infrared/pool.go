package infrared

import (
	"errors"
	"fmt"

	"github.com/womat/debug"
)

// MaxSessions is the capacity of a Pool.
const MaxSessions = 16

var ErrPoolFull = errors.New("infrared: too many decode sessions")

// Pool runs one decode session per protocol family against the same edge stream.
// It is not safe for concurrent use.
type Pool struct {
	sessions []*Decoder
	last     Message
	decoded  bool
}

// NewPool returns a pool decoding all supported protocol families.
func NewPool() *Pool {
	p, err := NewPoolOf(Families()...)
	if err != nil {
		// the descriptor table is validated at init
		panic(err)
	}
	return p
}

// NewPoolOf returns a pool decoding the given families, in the given priority.
func NewPoolOf(families ...Family) (*Pool, error) {
	if len(families) > MaxSessions {
		return nil, fmt.Errorf("%w: %d", ErrPoolFull, len(families))
	}

	p := &Pool{sessions: make([]*Decoder, 0, len(families))}
	for _, f := range families {
		d, err := NewFamilyDecoder(f)
		if err != nil {
			return nil, err
		}
		p.sessions = append(p.sessions, d)
	}
	return p, nil
}

// Decode feeds one edge to every session and returns the message of the first
// session completing a frame.
func (p *Pool) Decode(level bool, duration uint32) *Message {
	var found *Message
	for _, s := range p.sessions {
		if m := s.Decode(level, duration); m != nil && found == nil {
			found = m
		}
	}

	if found != nil {
		debug.DebugLog.Printf("decoded %v", found)
		p.last, p.decoded = *found, true
	}
	return found
}

// DecodeAll feeds edges in order, followed by a flush if flush is set, and
// returns all decoded messages.
func (p *Pool) DecodeAll(edges []Edge, flush bool) []Message {
	var l []Message
	for _, e := range edges {
		if m := p.Decode(e.Level, e.Duration); m != nil {
			l = append(l, *m)
		}
	}
	if flush {
		if m := p.Decode(false, 0); m != nil {
			l = append(l, *m)
		}
	}
	return l
}

// Reset resets every session.
func (p *Pool) Reset() {
	for _, s := range p.sessions {
		s.Reset()
	}
}

// Last returns the last decoded message.
func (p *Pool) Last() (Message, bool) {
	return p.last, p.decoded
}

// Session returns the session of family f, nil if the pool has none.
func (p *Pool) Session(f Family) *Decoder {
	for _, s := range p.sessions {
		if s.Family() == f {
			return s
		}
	}
	return nil
}
