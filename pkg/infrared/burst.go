package infrared

import "fmt"

// MaxRepeats is the largest number of held key frames of a burst.
const MaxRepeats = 32

// Signal is a waveform ready for a transmitter.
type Signal struct {
	Frequency uint32  `json:"frequency"`
	DutyCycle float32 `json:"dutyCycle"`
	Edges     []Edge  `json:"edges"`
}

// Burst encodes m as one frame followed by repeats held key frames. Adjacent
// edges of the same level are merged and leading spaces are dropped.
// repeats must be within 0..MaxRepeats.
func Burst(m Message, repeats int) (Signal, error) {
	if err := CheckRepeats(repeats); err != nil {
		return Signal{}, err
	}
	e, err := NewEncoder(m.Protocol)
	if err != nil {
		return Signal{}, err
	}
	if err = e.Reset(m); err != nil {
		return Signal{}, err
	}
	return e.Burst(repeats), nil
}

// CheckRepeats returns ErrRepeats if repeats is not within 0..MaxRepeats.
func CheckRepeats(repeats int) error {
	if repeats < 0 || repeats > MaxRepeats {
		return fmt.Errorf("%w: %d not in 0..%d", ErrRepeats, repeats, MaxRepeats)
	}
	return nil
}

// Burst encodes the current message as one frame and repeats further frames,
// at most MaxRepeats.
func (e *Encoder) Burst(repeats int) Signal {
	if repeats > MaxRepeats {
		repeats = MaxRepeats
	}
	var edges []Edge
	for frames := 0; frames <= repeats; {
		edge, done := e.Encode()
		edges = append(edges, edge)
		if done {
			frames++
		}
	}

	edges = Merge(edges)
	for len(edges) > 0 && !edges[0].Level {
		edges = edges[1:]
	}

	f, dc := e.Carrier()
	return Signal{Frequency: f, DutyCycle: dc, Edges: edges}
}

// Merge joins adjacent edges of the same level and drops empty edges.
func Merge(edges []Edge) []Edge {
	l := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Duration == 0 {
			continue
		}
		if n := len(l); n > 0 && l[n-1].Level == e.Level {
			l[n-1].Duration += e.Duration
			continue
		}
		l = append(l, e)
	}
	return l
}

// Timings returns the edges as alternating durations starting with a mark,
// the raw format of stored signals.
func (s Signal) Timings() []uint32 {
	l := make([]uint32, 0, len(s.Edges))
	for _, e := range Merge(s.Edges) {
		if len(l) == 0 && !e.Level {
			continue
		}
		l = append(l, e.Duration)
	}
	return l
}

// RawSignal builds a signal from alternating durations starting with a mark.
func RawSignal(frequency uint32, dutyCycle float32, timings []uint32) Signal {
	s := Signal{Frequency: frequency, DutyCycle: dutyCycle, Edges: make([]Edge, 0, len(timings))}
	for i, t := range timings {
		s.Edges = append(s.Edges, Edge{Level: i%2 == 0, Duration: t})
	}
	return s
}
